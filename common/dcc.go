package common

import (
	"encoding/json"
	"fmt"
	"github.com/go-errors/errors"
	"time"
)

type EntryKind string

const (
	KIND_VACCINATION EntryKind = "vaccination"
	KIND_TEST        EntryKind = "test"
	KIND_RECOVERY    EntryKind = "recovery"
)

// HealthCert is a decoded certificate bundle. It is built by a single decode
// call and never modified afterwards.
type HealthCert struct {
	// Issuer is the ISO 3166-1 country code of the issuing member state, which
	// some certificates omit
	Issuer    *string     `json:"issuer,omitempty"`
	IssuedAt  time.Time   `json:"issuedAt"`
	ExpiresAt time.Time   `json:"expiresAt"`
	Passes    []GreenPass `json:"passes"`
}

// GreenPass is the certificate payload of one person
type GreenPass struct {
	// DateOfBirth is kept verbatim, as issuers emit partial dates such as "1980" or "1980-04"
	DateOfBirth  string     `json:"dob"`
	Surname      string     `json:"fn"`
	GivenName    string     `json:"gn"`
	StdSurname   string     `json:"fnt"`
	StdGivenName string     `json:"gnt"`
	Version      string     `json:"ver"`
	Entries      []CertInfo `json:"-"`
}

// CertInfo is one of *Vaccine, *Test or *Recovery
type CertInfo interface {
	Kind() EntryKind
	Entry() MedicalEntry
	isCertInfo()
}

// MedicalEntry holds the identifying fields shared by all entry kinds
type MedicalEntry struct {
	Disease       string `json:"tg"`
	Country       string `json:"co"`
	Issuer        string `json:"is"`
	CertificateID string `json:"ci"`
}

func (e MedicalEntry) Entry() MedicalEntry {
	return e
}

type Vaccine struct {
	MedicalEntry
	Prophylaxis      string `json:"vp"`
	Product          string `json:"mp"`
	MarketAuthHolder string `json:"ma"`
	DoseNumber       int    `json:"dn"`
	DoseTotal        int    `json:"sd"`
	Date             Date   `json:"dt"`
}

type Test struct {
	MedicalEntry
	TestType          string     `json:"tt"`
	TestName          *string    `json:"nm,omitempty"`
	DeviceID          *string    `json:"ma,omitempty"`
	SampleCollectedAt time.Time  `json:"sc"`
	ResultAt          *time.Time `json:"dr,omitempty"`
	Result            string     `json:"tr"`
	TestingCentre     string     `json:"tc"`
}

type Recovery struct {
	MedicalEntry
	FirstPositive Date `json:"fr"`
	ValidFrom     Date `json:"df"`
	ValidUntil    Date `json:"du"`
}

func (*Vaccine) Kind() EntryKind  { return KIND_VACCINATION }
func (*Test) Kind() EntryKind     { return KIND_TEST }
func (*Recovery) Kind() EntryKind { return KIND_RECOVERY }

func (*Vaccine) isCertInfo()  {}
func (*Test) isCertInfo()     {}
func (*Recovery) isCertInfo() {}

type jsonEntry struct {
	Kind        EntryKind `json:"kind"`
	Vaccination *Vaccine  `json:"vaccination,omitempty"`
	Test        *Test     `json:"test,omitempty"`
	Recovery    *Recovery `json:"recovery,omitempty"`
}

func (gp GreenPass) MarshalJSON() ([]byte, error) {
	type plain GreenPass

	entries := make([]jsonEntry, 0, len(gp.Entries))
	for _, entry := range gp.Entries {
		je := jsonEntry{Kind: entry.Kind()}
		switch e := entry.(type) {
		case *Vaccine:
			je.Vaccination = e
		case *Test:
			je.Test = e
		case *Recovery:
			je.Recovery = e
		}

		entries = append(entries, je)
	}

	return json.Marshal(&struct {
		plain
		Entries []jsonEntry `json:"entries"`
	}{
		plain:   plain(gp),
		Entries: entries,
	})
}

// Date is a calendar date without a time zone
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

const DATE_LAYOUT = "2006-01-02"

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DATE_LAYOUT, s)
	if err != nil {
		return Date{}, errors.WrapPrefix(err, fmt.Sprintf("Could not parse date %q", s), 0)
	}

	return DateOf(t), nil
}

func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Time returns midnight UTC of the date
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}
