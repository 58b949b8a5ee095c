package dcc

import (
	_cbor "github.com/fxamacker/cbor/v2"
	"github.com/go-errors/errors"
	"github.com/minvws/greenpass-hcert/cbor"
	"github.com/minvws/greenpass-hcert/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
	"time"
)

func vaccination() map[string]interface{} {
	return map[string]interface{}{
		"tg": "840539006",
		"vp": "1119349007",
		"mp": "EU/1/20/1528",
		"ma": "ORG-100030215",
		"dn": 1,
		"sd": 2,
		"dt": "2021-02-18",
		"co": "AT",
		"is": "Ministry of Health, Austria",
		"ci": "URN:UVCI:01:AT:10807843F94AEE0EE5093FBC254BD813#B",
	}
}

func test() map[string]interface{} {
	return map[string]interface{}{
		"tg": "840539006",
		"tt": "LP6464-4",
		"nm": "Roche LightCycler qPCR",
		"sc": "2021-02-20T04:34:56Z",
		"tr": "260415000",
		"tc": "Testing center Vienna 1",
		"co": "AT",
		"is": "Ministry of Health, Austria",
		"ci": "URN:UVCI:01:AT:B5921A35D6A0D696421B3E2462178297#I",
	}
}

func recovery() map[string]interface{} {
	return map[string]interface{}{
		"tg": "840539006",
		"fr": "2021-02-20",
		"df": "2021-04-04",
		"du": "2021-10-04",
		"co": "AT",
		"is": "Ministry of Health, Austria",
		"ci": "URN:UVCI:01:AT:858CC18CFCF5965EF82F60E493349AA5#K",
	}
}

func payload(entries map[string]interface{}) map[string]interface{} {
	p := map[string]interface{}{
		"ver": "1.0.0",
		"dob": "1998-02-26",
		"nam": map[string]interface{}{
			"fn":  "Musterfrau-Gößinger",
			"gn":  "Gabriele",
			"fnt": "MUSTERFRAU<GOESSINGER",
			"gnt": "GABRIELE",
		},
	}

	for k, v := range entries {
		p[k] = v
	}

	return p
}

func toMap(t *testing.T, v interface{}) cbor.Map {
	b, err := _cbor.Marshal(v)
	require.NoError(t, err)

	decoded, err := cbor.Decode(b)
	require.NoError(t, err)

	m, err := cbor.AsMap(decoded, "payload")
	require.NoError(t, err)

	return m
}

func TestMapVaccination(t *testing.T) {
	gp, err := Map(toMap(t, payload(map[string]interface{}{"v": []interface{}{vaccination()}})))
	require.NoError(t, err)

	assert.Equal(t, "1998-02-26", gp.DateOfBirth)
	assert.Equal(t, "1.0.0", gp.Version)
	assert.Equal(t, "Musterfrau-Gößinger", gp.Surname)
	assert.Equal(t, "Gabriele", gp.GivenName)
	assert.Equal(t, "MUSTERFRAU<GOESSINGER", gp.StdSurname)
	assert.Equal(t, "GABRIELE", gp.StdGivenName)

	require.Len(t, gp.Entries, 1)
	assert.Equal(t, &common.Vaccine{
		MedicalEntry: common.MedicalEntry{
			Disease:       "840539006",
			Country:       "AT",
			Issuer:        "Ministry of Health, Austria",
			CertificateID: "URN:UVCI:01:AT:10807843F94AEE0EE5093FBC254BD813#B",
		},
		Prophylaxis:      "1119349007",
		Product:          "EU/1/20/1528",
		MarketAuthHolder: "ORG-100030215",
		DoseNumber:       1,
		DoseTotal:        2,
		Date:             common.Date{Year: 2021, Month: time.February, Day: 18},
	}, gp.Entries[0])
}

func TestMapTest(t *testing.T) {
	te := test()
	te["dr"] = "2021-02-20T06:34:56+0200"

	gp, err := Map(toMap(t, payload(map[string]interface{}{"t": []interface{}{te}})))
	require.NoError(t, err)

	require.Len(t, gp.Entries, 1)
	got, ok := gp.Entries[0].(*common.Test)
	require.True(t, ok)

	assert.Equal(t, common.KIND_TEST, got.Kind())
	assert.Equal(t, "LP6464-4", got.TestType)
	require.NotNil(t, got.TestName)
	assert.Equal(t, "Roche LightCycler qPCR", *got.TestName)
	assert.Nil(t, got.DeviceID)
	assert.Equal(t, time.Date(2021, 2, 20, 4, 34, 56, 0, time.UTC), got.SampleCollectedAt)
	require.NotNil(t, got.ResultAt)
	assert.Equal(t, time.Date(2021, 2, 20, 4, 34, 56, 0, time.UTC), *got.ResultAt)
	assert.Equal(t, "260415000", got.Result)
	assert.Equal(t, "Testing center Vienna 1", got.TestingCentre)
}

func TestMapTestWithoutNameOrDevice(t *testing.T) {
	te := test()
	delete(te, "nm")
	te["ma"] = nil

	gp, err := Map(toMap(t, payload(map[string]interface{}{"t": []interface{}{te}})))
	require.NoError(t, err)

	got := gp.Entries[0].(*common.Test)
	assert.Nil(t, got.TestName)
	assert.Nil(t, got.DeviceID)
	assert.Nil(t, got.ResultAt)
}

func TestMapRecovery(t *testing.T) {
	gp, err := Map(toMap(t, payload(map[string]interface{}{"r": []interface{}{recovery()}})))
	require.NoError(t, err)

	require.Len(t, gp.Entries, 1)
	assert.Equal(t, &common.Recovery{
		MedicalEntry: common.MedicalEntry{
			Disease:       "840539006",
			Country:       "AT",
			Issuer:        "Ministry of Health, Austria",
			CertificateID: "URN:UVCI:01:AT:858CC18CFCF5965EF82F60E493349AA5#K",
		},
		FirstPositive: common.Date{Year: 2021, Month: time.February, Day: 20},
		ValidFrom:     common.Date{Year: 2021, Month: time.April, Day: 4},
		ValidUntil:    common.Date{Year: 2021, Month: time.October, Day: 4},
	}, gp.Entries[0])
}

func TestMapEntryOrder(t *testing.T) {
	second := vaccination()
	second["dn"] = 2

	gp, err := Map(toMap(t, payload(map[string]interface{}{
		"r": []interface{}{recovery()},
		"t": []interface{}{test()},
		"v": []interface{}{vaccination(), second},
	})))
	require.NoError(t, err)

	require.Len(t, gp.Entries, 4)
	assert.Equal(t, common.KIND_VACCINATION, gp.Entries[0].Kind())
	assert.Equal(t, 1, gp.Entries[0].(*common.Vaccine).DoseNumber)
	assert.Equal(t, 2, gp.Entries[1].(*common.Vaccine).DoseNumber)
	assert.Equal(t, common.KIND_TEST, gp.Entries[2].Kind())
	assert.Equal(t, common.KIND_RECOVERY, gp.Entries[3].Kind())
}

func TestMapMissingEntries(t *testing.T) {
	_, err := Map(toMap(t, payload(nil)))
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrSchemaViolation))
	assert.Contains(t, err.Error(), "v, t or r")

	_, err = Map(toMap(t, payload(map[string]interface{}{"v": []interface{}{}})))
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrSchemaViolation))
}

func TestMapOptionalNames(t *testing.T) {
	p := payload(map[string]interface{}{"v": []interface{}{vaccination()}})
	p["nam"] = map[string]interface{}{"fnt": "MUSTERFRAU"}
	p["dob"] = "1998"
	p["unknown"] = []interface{}{1, 2, 3}

	gp, err := Map(toMap(t, p))
	require.NoError(t, err)
	assert.Equal(t, "MUSTERFRAU", gp.StdSurname)
	assert.Equal(t, "", gp.Surname)
	assert.Equal(t, "", gp.GivenName)
	assert.Equal(t, "", gp.StdGivenName)
	assert.Equal(t, "1998", gp.DateOfBirth)
}

func TestMapLenientValues(t *testing.T) {
	v := vaccination()
	v["dn"] = 1.0
	v["dt"] = "2021-02-18T10:00:00+02:00"

	gp, err := Map(toMap(t, payload(map[string]interface{}{"v": []interface{}{v}})))
	require.NoError(t, err)

	got := gp.Entries[0].(*common.Vaccine)
	assert.Equal(t, 1, got.DoseNumber)
	assert.Equal(t, common.Date{Year: 2021, Month: time.February, Day: 18}, got.Date)
}

func TestMapSchemaViolations(t *testing.T) {
	cases := []struct {
		name     string
		payload  func() map[string]interface{}
		contains string
	}{
		{"missing dob", func() map[string]interface{} {
			p := payload(map[string]interface{}{"v": []interface{}{vaccination()}})
			delete(p, "dob")
			return p
		}, "dob"},
		{"missing nam", func() map[string]interface{} {
			p := payload(map[string]interface{}{"v": []interface{}{vaccination()}})
			delete(p, "nam")
			return p
		}, "nam"},
		{"missing fnt", func() map[string]interface{} {
			p := payload(map[string]interface{}{"v": []interface{}{vaccination()}})
			p["nam"] = map[string]interface{}{"fn": "Musterfrau"}
			return p
		}, "fnt"},
		{"nam not a map", func() map[string]interface{} {
			p := payload(map[string]interface{}{"v": []interface{}{vaccination()}})
			p["nam"] = "Musterfrau"
			return p
		}, "nam"},
		{"ver not text", func() map[string]interface{} {
			p := payload(map[string]interface{}{"v": []interface{}{vaccination()}})
			p["ver"] = 1
			return p
		}, "ver"},
		{"v not an array", func() map[string]interface{} {
			return payload(map[string]interface{}{"v": vaccination()})
		}, "vaccination"},
		{"entry not a map", func() map[string]interface{} {
			return payload(map[string]interface{}{"t": []interface{}{"test"}})
		}, "test entry 0"},
		{"missing vaccination field", func() map[string]interface{} {
			v := vaccination()
			delete(v, "mp")
			return payload(map[string]interface{}{"v": []interface{}{v}})
		}, "mp in vaccination entry 0"},
		{"fractional dose", func() map[string]interface{} {
			v := vaccination()
			v["sd"] = 1.5
			return payload(map[string]interface{}{"v": []interface{}{v}})
		}, "sd"},
		{"text dose", func() map[string]interface{} {
			v := vaccination()
			v["dn"] = "1"
			return payload(map[string]interface{}{"v": []interface{}{v}})
		}, "dn"},
		{"bad date", func() map[string]interface{} {
			r := recovery()
			r["du"] = "2021-13-04"
			return payload(map[string]interface{}{"r": []interface{}{r}})
		}, "du in recovery entry 0"},
		{"bad date-time", func() map[string]interface{} {
			te := test()
			te["sc"] = "2021-02-20 04:34:56"
			return payload(map[string]interface{}{"t": []interface{}{te}})
		}, "sc in test entry 0"},
		{"missing test result", func() map[string]interface{} {
			te := test()
			delete(te, "tr")
			return payload(map[string]interface{}{"t": []interface{}{te}})
		}, "tr in test entry 0"},
		{"second entry broken", func() map[string]interface{} {
			r := recovery()
			delete(r, "ci")
			return payload(map[string]interface{}{"r": []interface{}{recovery(), r}})
		}, "ci in recovery entry 1"},
	}

	for _, c := range cases {
		_, err := Map(toMap(t, c.payload()))
		require.Error(t, err, c.name)
		assert.True(t, errors.Is(err, common.ErrSchemaViolation), "%s: %v", c.name, err)
		assert.Contains(t, err.Error(), c.contains, c.name)
	}
}

func TestParseDateTime(t *testing.T) {
	cases := []struct {
		in       string
		expected time.Time
	}{
		{"2021-02-20T04:34:56Z", time.Date(2021, 2, 20, 4, 34, 56, 0, time.UTC)},
		{"2021-02-20T12:34:56+01:00", time.Date(2021, 2, 20, 11, 34, 56, 0, time.UTC)},
		{"2021-02-20T12:34:56+0100", time.Date(2021, 2, 20, 11, 34, 56, 0, time.UTC)},
		{"2021-02-20T12:34:56+01", time.Date(2021, 2, 20, 11, 34, 56, 0, time.UTC)},
		{"2021-02-20T12:34:56.250-05:30", time.Date(2021, 2, 20, 18, 4, 56, 250000000, time.UTC)},
		{"2021-02-20t04:34:56Z", time.Date(2021, 2, 20, 4, 34, 56, 0, time.UTC)},
	}

	for _, c := range cases {
		got, err := parseDateTime(c.in)
		require.NoError(t, err, c.in)
		assert.Equal(t, c.expected, got, c.in)
		assert.Equal(t, time.UTC, got.Location(), c.in)
	}

	for _, in := range []string{"", "2021-02-20", "2021-02-20T04:34:56", "2021-02-30T04:34:56Z", "yesterday"} {
		_, err := parseDateTime(in)
		assert.Error(t, err, in)
	}
}

func TestParseDate(t *testing.T) {
	d, err := parseDate("2021-02-20")
	require.NoError(t, err)
	assert.Equal(t, "2021-02-20", d.String())

	d, err = parseDate("2021-02-20T23:30:00-05:00")
	require.NoError(t, err)
	assert.Equal(t, "2021-02-20", d.String())

	for _, in := range []string{"", "2021-2-20", "20-02-2021", "2021-02-20T", "2021-02-20Tnope"} {
		_, err := parseDate(in)
		assert.Error(t, err, in)
	}
}
