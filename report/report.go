// Package report renders decoded health certificates for people and programs.
package report

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"github.com/fatih/color"
	"github.com/go-errors/errors"
	"github.com/minvws/greenpass-hcert/common"
	"github.com/minvws/greenpass-hcert/cose"
	"github.com/minvws/greenpass-hcert/valueset"
	"io"
	"strings"
	"time"
)

const TIME_LAYOUT = "2006-01-02 15:04:05 MST"

type Options struct {
	NoColor bool

	// Signature is shown when set. It is never verified.
	Signature *cose.Sign1
}

type printer struct {
	w   io.Writer
	err error

	header *color.Color
	label  *color.Color
	warn   *color.Color
}

func newPrinter(w io.Writer, noColor bool) *printer {
	p := &printer{
		w:      w,
		header: color.New(color.FgCyan, color.Bold),
		label:  color.New(color.FgYellow),
		warn:   color.New(color.FgRed),
	}

	if noColor {
		for _, c := range []*color.Color{p.header, p.label, p.warn} {
			c.DisableColor()
		}
	}

	return p
}

// printf writes in color c, or uncolored when c is nil
func (p *printer) printf(c *color.Color, format string, a ...interface{}) {
	if p.err != nil {
		return
	}

	s := fmt.Sprintf(format, a...)
	if c != nil {
		s = c.Sprint(s)
	}

	_, p.err = io.WriteString(p.w, s)
}

func (p *printer) line(indent int, name string, format string, a ...interface{}) {
	p.printf(p.label, "%s%s: ", strings.Repeat(" ", indent), name)
	p.printf(nil, format+"\n", a...)
}

func (p *printer) section(indent int, title string) {
	p.printf(p.header, "%s%s\n", strings.Repeat(" ", indent), title)
}

func (p *printer) blank() {
	p.printf(nil, "\n")
}

// Text writes an indented, human readable dump of hc
func Text(w io.Writer, hc *common.HealthCert, opts Options) error {
	p := newPrinter(w, opts.NoColor)
	p.section(0, "EU Digital COVID Certificate")
	p.blank()

	if hc.Issuer != nil {
		p.line(0, "Issued by", "%s", *hc.Issuer)
	}
	p.line(0, "Created at", "%s", formatTime(hc.IssuedAt))
	p.line(0, "Expires at", "%s", formatTime(hc.ExpiresAt))

	for i, gp := range hc.Passes {
		p.blank()
		p.section(0, fmt.Sprintf("Pass #%d", i))
		printPass(p, &gp)
	}

	if opts.Signature != nil {
		p.blank()
		printSignature(p, opts.Signature)
	}

	return p.err
}

func printPass(p *printer, gp *common.GreenPass) {
	p.line(4, "Cert version", "%s", gp.Version)
	p.line(4, "Emitted to", "%s", joinName(gp.GivenName, gp.Surname))
	p.line(4, "Standardized name", "%s", joinName(gp.StdGivenName, gp.StdSurname))
	p.line(4, "Date of birth", "%s", gp.DateOfBirth)

	for _, entry := range gp.Entries {
		p.blank()
		switch e := entry.(type) {
		case *common.Vaccine:
			p.section(4, "Vaccination data")
			printEntry(p, e.Entry())
			p.line(8, "Vaccination date", "%s", e.Date)
			p.line(8, "Doses administered", "%d/%d", e.DoseNumber, e.DoseTotal)
			p.line(8, "Product", "%s", display(valueset.KIND_PRODUCT, e.Product))
			p.line(8, "Market authorization holder", "%s", display(valueset.KIND_MANUFACTURER, e.MarketAuthHolder))
			p.line(8, "Vaccine/prophylaxis", "%s", display(valueset.KIND_PROPHYLAXIS, e.Prophylaxis))

		case *common.Test:
			p.section(4, "Testing attestation")
			printEntry(p, e.Entry())
			p.line(8, "Result", "%s", display(valueset.KIND_TEST_RESULT, e.Result))
			p.line(8, "Samples collected at", "%s", formatTime(e.SampleCollectedAt))
			if e.ResultAt != nil {
				p.line(8, "Result produced at", "%s", formatTime(*e.ResultAt))
			}
			p.line(8, "Test type", "%s", display(valueset.KIND_TEST_TYPE, e.TestType))
			if e.TestName != nil {
				p.line(8, "Test name", "%s", *e.TestName)
			}
			if e.DeviceID != nil {
				p.line(8, "Test device", "%s", *e.DeviceID)
			}
			p.line(8, "Conducted by", "%s", e.TestingCentre)

		case *common.Recovery:
			p.section(4, "Recovery attestation")
			printEntry(p, e.Entry())
			p.line(8, "Tested positive", "%s", e.FirstPositive)
			p.line(8, "Valid from", "%s", e.ValidFrom)
			p.line(8, "Valid until", "%s", e.ValidUntil)
		}
	}
}

func printEntry(p *printer, e common.MedicalEntry) {
	p.line(8, "Cert ID", "%s", e.CertificateID)
	p.line(8, "Disease", "%s", display(valueset.KIND_DISEASE, e.Disease))
	p.line(8, "Issuer", "%s", e.Issuer)
	p.line(8, "Country", "%s", e.Country)
}

func printSignature(p *printer, sign1 *cose.Sign1) {
	p.section(0, "Signature")
	p.printf(p.warn, "    Not verified\n")

	header, err := sign1.Header()
	switch {
	case err != nil && sign1.Protected == nil:
		p.line(4, "Protected header", "not a byte string")
	case err != nil:
		p.line(4, "Protected header", "undecodable %s", hex.EncodeToString(sign1.Protected))
	default:
		p.line(4, "Algorithm", "%s (%d)", cose.AlgName(header.Alg), header.Alg)
		if header.KID != nil {
			p.line(4, "Key ID", "%s", base64.StdEncoding.EncodeToString(header.KID))
		}
	}

	if sign1.Signature == nil {
		p.line(4, "Signature", "not a byte string")
		return
	}

	p.line(4, "Signature", "%s", hex.EncodeToString(sign1.Signature))
}

// display shows the value set name of a code next to the code itself
func display(kind valueset.Kind, code string) string {
	name, ok := valueset.Display(kind, code)
	if !ok {
		return code
	}

	return fmt.Sprintf("%s (%s)", name, code)
}

func joinName(given, family string) string {
	return strings.TrimSpace(given + " " + family)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(TIME_LAYOUT)
}

type jsonCertificate struct {
	HealthCertificate *common.HealthCert `json:"healthCertificate"`
	SignatureVerified bool               `json:"signatureVerified"`
}

// JSON writes hc as indented JSON
func JSON(w io.Writer, hc *common.HealthCert) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	err := enc.Encode(&jsonCertificate{HealthCertificate: hc})
	if err != nil {
		return errors.WrapPrefix(err, "Could not JSON marshal health certificate", 0)
	}

	return nil
}
