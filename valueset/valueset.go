// Package valueset resolves codes from the EU Digital COVID Certificate value
// sets to display names.
package valueset

type Kind string

const (
	KIND_DISEASE      Kind = "tg"
	KIND_PROPHYLAXIS  Kind = "vp"
	KIND_PRODUCT      Kind = "mp"
	KIND_MANUFACTURER Kind = "ma"
	KIND_TEST_TYPE    Kind = "tt"
	KIND_TEST_RESULT  Kind = "tr"
)

type AuthorizationStatus int

const (
	// Listed in the Union Register of medicinal products
	CENTRALLY_AUTHORIZED AuthorizationStatus = iota
	IN_ROLLING_REVIEW
	NOT_AUTHORIZED
)

func (s AuthorizationStatus) String() string {
	switch s {
	case CENTRALLY_AUTHORIZED:
		return "centrally authorized"
	case IN_ROLLING_REVIEW:
		return "in rolling review"
	case NOT_AUTHORIZED:
		return "not authorized"
	}

	return "unknown"
}

type Product struct {
	Display string
	Status  AuthorizationStatus

	// Since is the value set version that introduced the code, empty for
	// codes from the Union Register
	Since string
}

var diseases = map[string]string{
	"840539006": "COVID-19",
}

var prophylaxis = map[string]string{
	"1119305005": "SARS-CoV-2 antigen vaccine",
	"1119349007": "SARS-CoV-2 mRNA vaccine",
	"J07BX03":    "covid-19 vaccines",
}

var products = map[string]Product{
	"EU/1/20/1528":                     {"Comirnaty", CENTRALLY_AUTHORIZED, ""},
	"EU/1/20/1507":                     {"Spikevax", CENTRALLY_AUTHORIZED, ""},
	"EU/1/21/1529":                     {"Vaxzevria", CENTRALLY_AUTHORIZED, ""},
	"EU/1/20/1525":                     {"COVID-19 Vaccine Janssen", CENTRALLY_AUTHORIZED, ""},
	"EU/1/21/1618":                     {"Nuvaxovid", CENTRALLY_AUTHORIZED, ""},
	"CVnCoV":                           {"CVnCoV", IN_ROLLING_REVIEW, "1.0"},
	"NVX-CoV2373":                      {"NVX-CoV2373", IN_ROLLING_REVIEW, "1.0"},
	"Sputnik-V":                        {"Sputnik V", IN_ROLLING_REVIEW, "1.0"},
	"Convidecia":                       {"Convidecia", NOT_AUTHORIZED, "1.0"},
	"EpiVacCorona":                     {"EpiVacCorona", NOT_AUTHORIZED, "1.0"},
	"BBIBP-CorV":                       {"BBIBP-CorV", NOT_AUTHORIZED, "1.0"},
	"Inactivated-SARS-CoV-2-Vero-Cell": {"Inactivated SARS-CoV-2 (Vero Cell)", NOT_AUTHORIZED, "1.0"},
	"CoronaVac":                        {"CoronaVac", NOT_AUTHORIZED, "1.0"},
	"Covaxin":                          {"Covaxin (also known as BBV152 A, B, C)", NOT_AUTHORIZED, "1.0"},
	"Covishield":                       {"Covishield (ChAdOx1_n CoV-19)", NOT_AUTHORIZED, "1.2"},
	"Covid-19-recombinant":             {"Covid-19 (recombinant)", NOT_AUTHORIZED, "1.3"},
	"R-COVI":                           {"R-COVI", NOT_AUTHORIZED, "1.3"},
	"CoviVac":                          {"CoviVac", NOT_AUTHORIZED, "1.4"},
	"Sputnik-Light":                    {"Sputnik Light", NOT_AUTHORIZED, "1.4"},
	"Hayat-Vax":                        {"Hayat-Vax", NOT_AUTHORIZED, "1.4"},
	"Abdala":                           {"Abdala", NOT_AUTHORIZED, "1.5"},
	"WIBP-CorV":                        {"WIBP-CorV", NOT_AUTHORIZED, "1.5"},
	"MVC-COV1901":                      {"MVC COVID-19 vaccine", NOT_AUTHORIZED, "1.6"},
}

var manufacturers = map[string]string{
	"ORG-100001699":                      "AstraZeneca AB",
	"ORG-100030215":                      "Biontech Manufacturing GmbH",
	"ORG-100001417":                      "Janssen-Cilag International",
	"ORG-100031184":                      "Moderna Biotech Spain S.L.",
	"ORG-100006270":                      "Curevac AG",
	"ORG-100013793":                      "CanSino Biologics",
	"ORG-100020693":                      "China Sinopharm International Corp. - Beijing location",
	"ORG-100010771":                      "Sinopharm Weiqida Europe Pharmaceutical s.r.o. - Prague location",
	"ORG-100024420":                      "Sinopharm Zhijun (Shenzhen) Pharmaceutical Co. Ltd. - Shenzhen location",
	"ORG-100032020":                      "Novavax CZ a.s.",
	"Gamaleya-Research-Institute":        "Gamaleya Research Institute",
	"Vector-Institute":                   "Vector Institute",
	"Sinovac-Biotech":                    "Sinovac Biotech",
	"Bharat-Biotech":                     "Bharat Biotech",
	"ORG-100001981":                      "Serum Institute Of India Private Limited",
	"Fiocruz":                            "Fiocruz",
	"ORG-100007893":                      "R-Pharm CJSC",
	"Chumakov-Federal-Scientific-Center": "Chumakov Federal Scientific Center for Research and Development of Immune-and-Biological Products",
	"ORG-100023050":                      "Gulf Pharmaceutical Industries",
	"CIGB":                               "Center for Genetic Engineering and Biotechnology (CIGB)",
	"Sinopharm-WIBP":                     "Sinopharm - Wuhan Institute of Biological Products",
	"ORG-100033914":                      "Medigen Vaccine Biologics Corporation",
}

var testTypes = map[string]string{
	"LP6464-4":   "Nucleic acid amplification with probe detection",
	"LP217198-3": "Rapid immunoassay",
}

var testResults = map[string]string{
	"260415000": "Not detected",
	"260373001": "Detected",
}

// Display returns the display name of code in the value set of the given
// kind, if the code is known
func Display(kind Kind, code string) (string, bool) {
	var table map[string]string
	switch kind {
	case KIND_DISEASE:
		table = diseases
	case KIND_PROPHYLAXIS:
		table = prophylaxis
	case KIND_MANUFACTURER:
		table = manufacturers
	case KIND_TEST_TYPE:
		table = testTypes
	case KIND_TEST_RESULT:
		table = testResults
	case KIND_PRODUCT:
		p, ok := products[code]
		return p.Display, ok
	default:
		return "", false
	}

	display, ok := table[code]
	return display, ok
}

func LookupProduct(code string) (Product, bool) {
	p, ok := products[code]
	return p, ok
}
