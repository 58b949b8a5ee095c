// Package dcc maps the HCERT payload of a Digital COVID Certificate onto the
// certificate model. It transcribes structure only and performs no semantic
// validation of codes, doses or dates.
package dcc

import (
	"fmt"
	"github.com/minvws/greenpass-hcert/cbor"
	"github.com/minvws/greenpass-hcert/common"
	"math"
	"strings"
	"time"
)

const (
	KEY_VACCINATIONS = "v"
	KEY_TESTS        = "t"
	KEY_RECOVERIES   = "r"
)

// Accepted date-time layouts, differing only in the zone offset notation
var dateTimeLayouts = []string{
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05.999999999Z07",
}

// Map reads one HCERT payload. Under nam only fnt is required, as in the
// published DCC JSON schema (ehn-dcc-development/ehn-dcc-schema, DCC.Core.Types
// person_name), which leaves fn, gn and gnt optional.
func Map(payload cbor.Map) (*common.GreenPass, error) {
	r := &reader{m: payload, context: "hcert payload"}

	gp := &common.GreenPass{
		DateOfBirth: r.text("dob"),
		Version:     r.text("ver"),
	}

	nam := r.nested("nam")
	if r.err != nil {
		return nil, r.err
	}

	gp.StdSurname = nam.text("fnt")
	gp.Surname = nam.optionalTextOrEmpty("fn")
	gp.GivenName = nam.optionalTextOrEmpty("gn")
	gp.StdGivenName = nam.optionalTextOrEmpty("gnt")
	if nam.err != nil {
		return nil, nam.err
	}

	found := false
	for _, collection := range []struct {
		key  string
		kind common.EntryKind
		read func(r *reader) common.CertInfo
	}{
		{KEY_VACCINATIONS, common.KIND_VACCINATION, readVaccine},
		{KEY_TESTS, common.KIND_TEST, readTest},
		{KEY_RECOVERIES, common.KIND_RECOVERY, readRecovery},
	} {
		v, ok := payload.Text(collection.key)
		if !ok {
			continue
		}
		found = true

		arr, ok := v.(cbor.Array)
		if !ok {
			return nil, common.Errorf(common.ErrSchemaViolation, "Expected %s entries under %s to be an array, got %s", collection.kind, collection.key, cbor.TypeName(v))
		}

		for i, item := range arr {
			m, ok := item.(cbor.Map)
			if !ok {
				return nil, common.Errorf(common.ErrSchemaViolation, "Expected %s entry %d to be a map, got %s", collection.kind, i, cbor.TypeName(item))
			}

			er := &reader{m: m, context: fmt.Sprintf("%s entry %d", collection.kind, i)}
			entry := collection.read(er)
			if er.err != nil {
				return nil, er.err
			}

			gp.Entries = append(gp.Entries, entry)
		}
	}

	if !found {
		return nil, common.Errorf(common.ErrSchemaViolation, "Could not find any of the v, t or r entry collections")
	}

	if len(gp.Entries) == 0 {
		return nil, common.Errorf(common.ErrSchemaViolation, "Found no entries in the v, t or r entry collections")
	}

	return gp, nil
}

func readEntry(r *reader) common.MedicalEntry {
	return common.MedicalEntry{
		Disease:       r.text("tg"),
		Country:       r.text("co"),
		Issuer:        r.text("is"),
		CertificateID: r.text("ci"),
	}
}

func readVaccine(r *reader) common.CertInfo {
	return &common.Vaccine{
		MedicalEntry:     readEntry(r),
		Prophylaxis:      r.text("vp"),
		Product:          r.text("mp"),
		MarketAuthHolder: r.text("ma"),
		DoseNumber:       r.integer("dn"),
		DoseTotal:        r.integer("sd"),
		Date:             r.date("dt"),
	}
}

func readTest(r *reader) common.CertInfo {
	return &common.Test{
		MedicalEntry:      readEntry(r),
		TestType:          r.text("tt"),
		TestName:          r.optionalText("nm"),
		DeviceID:          r.optionalText("ma"),
		SampleCollectedAt: r.dateTime("sc"),
		ResultAt:          r.optionalDateTime("dr"),
		Result:            r.text("tr"),
		TestingCentre:     r.text("tc"),
	}
}

func readRecovery(r *reader) common.CertInfo {
	return &common.Recovery{
		MedicalEntry:  readEntry(r),
		FirstPositive: r.date("fr"),
		ValidFrom:     r.date("df"),
		ValidUntil:    r.date("du"),
	}
}

// reader looks up fields in a map. The first failure is kept in err and
// turns every later lookup into a no-op.
type reader struct {
	m       cbor.Map
	context string
	err     error
}

func (r *reader) fail(format string, a ...interface{}) {
	if r.err == nil {
		r.err = common.Errorf(common.ErrSchemaViolation, "%s in %s", fmt.Sprintf(format, a...), r.context)
	}
}

// lookup returns the value under key, treating null as absent
func (r *reader) lookup(key string) (cbor.Value, bool) {
	if r.err != nil {
		return nil, false
	}

	v, ok := r.m.Text(key)
	if !ok {
		return nil, false
	}

	if _, isNull := v.(cbor.Null); isNull {
		return nil, false
	}

	return v, true
}

func (r *reader) required(key string) (cbor.Value, bool) {
	v, ok := r.lookup(key)
	if !ok {
		r.fail("Missing required field %s", key)
	}

	return v, ok
}

func (r *reader) asText(key string, v cbor.Value) string {
	s, ok := v.(cbor.Text)
	if !ok {
		r.fail("Expected field %s to be a text string, got %s", key, cbor.TypeName(v))
		return ""
	}

	return string(s)
}

func (r *reader) text(key string) string {
	v, ok := r.required(key)
	if !ok {
		return ""
	}

	return r.asText(key, v)
}

func (r *reader) optionalText(key string) *string {
	v, ok := r.lookup(key)
	if !ok {
		return nil
	}

	s := r.asText(key, v)
	if r.err != nil {
		return nil
	}

	return &s
}

func (r *reader) optionalTextOrEmpty(key string) string {
	s := r.optionalText(key)
	if s == nil {
		return ""
	}

	return *s
}

// integer accepts integers and floats without a fractional part
func (r *reader) integer(key string) int {
	v, ok := r.required(key)
	if !ok {
		return 0
	}

	switch v := v.(type) {
	case cbor.Int:
		if int64(v) < math.MinInt32 || int64(v) > math.MaxInt32 {
			r.fail("Field %s is out of range", key)
			return 0
		}

		return int(v)

	case cbor.Float:
		f := float64(v)
		if f != math.Trunc(f) || f < math.MinInt32 || f > math.MaxInt32 {
			r.fail("Expected field %s to be an integer, got %v", key, f)
			return 0
		}

		return int(f)
	}

	r.fail("Expected field %s to be an integer, got %s", key, cbor.TypeName(v))
	return 0
}

func (r *reader) date(key string) common.Date {
	s := r.text(key)
	if r.err != nil {
		return common.Date{}
	}

	d, err := parseDate(s)
	if err != nil {
		r.fail("Could not parse field %s as a date (%q)", key, s)
		return common.Date{}
	}

	return d
}

func (r *reader) dateTime(key string) time.Time {
	s := r.text(key)
	if r.err != nil {
		return time.Time{}
	}

	t, err := parseDateTime(s)
	if err != nil {
		r.fail("Could not parse field %s as a date-time (%q)", key, s)
		return time.Time{}
	}

	return t
}

func (r *reader) optionalDateTime(key string) *time.Time {
	if _, ok := r.lookup(key); !ok {
		return nil
	}

	t := r.dateTime(key)
	if r.err != nil {
		return nil
	}

	return &t
}

func (r *reader) nested(key string) *reader {
	nested := &reader{context: key + " of " + r.context}

	v, ok := r.required(key)
	if !ok {
		nested.err = r.err
		return nested
	}

	m, ok := v.(cbor.Map)
	if !ok {
		r.fail("Expected field %s to be a map, got %s", key, cbor.TypeName(v))
		nested.err = r.err
		return nested
	}

	nested.m = m
	return nested
}

// parseDate reads a calendar date. A full date-time is accepted and
// truncated to the date as written.
func parseDate(s string) (common.Date, error) {
	if len(s) > len(common.DATE_LAYOUT) && strings.ContainsAny(s[len(common.DATE_LAYOUT):len(common.DATE_LAYOUT)+1], "Tt") {
		_, err := parseDateTime(s)
		if err != nil {
			return common.Date{}, err
		}

		s = s[:len(common.DATE_LAYOUT)]
	}

	return common.ParseDate(s)
}

// parseDateTime reads an RFC 3339 date-time and converts it to UTC
func parseDateTime(s string) (t time.Time, err error) {
	normalized := s
	if len(s) > len(common.DATE_LAYOUT) && s[len(common.DATE_LAYOUT)] == 't' {
		normalized = s[:len(common.DATE_LAYOUT)] + "T" + s[len(common.DATE_LAYOUT)+1:]
	}

	for _, layout := range dateTimeLayouts {
		t, err = time.Parse(layout, normalized)
		if err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, err
}
