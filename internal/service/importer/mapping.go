// internal/service/importer/mapping.go
package importer

import (
	"strings"
	"unicode"

	"routedesk-service/internal/domain/customer"
	"routedesk-service/internal/service/intelligence"
)

type Field string

const (
	FieldName         Field = "name"
	FieldAddress      Field = "address"
	FieldNumber       Field = "number"
	FieldNeighborhood Field = "neighborhood"
	FieldPhone        Field = "phone"
)

// ColumnMap maps a customer field to its index in a cleaned row.
type ColumnMap map[Field]int

func (m ColumnMap) HasName() bool {
	_, ok := m[FieldName]
	return ok
}

// Header keywords, matched as substrings of the lower-cased header cell.
var (
	nameKeywords         = []string{"nome", "name"}
	addressKeywords      = []string{"endere", "address", "street", "logradouro"}
	numberKeywords       = []string{"número", "numero", "number", "nº"}
	neighborhoodKeywords = []string{"bairro", "neighborhood", "neighbourhood", "district"}
	phoneKeywords        = []string{"telefone", "phone", "celular", "fone"}
)

// Draft is a customer parsed from one row, before it is stored.
type Draft struct {
	Name         string
	Address      string
	Neighborhood string
	Phone        string
}

func (d Draft) Customer() *customer.Customer {
	return &customer.Customer{
		Name:         d.Name,
		Address:      d.Address,
		Neighborhood: d.Neighborhood,
		Phone:        d.Phone,
		CycleDays:    intelligence.DefaultCycleDays,
	}
}

// SniffDelimiter picks ';' when the first line has one, ',' otherwise.
func SniffDelimiter(firstLine string) rune {
	if strings.Contains(firstLine, ";") {
		return ';'
	}
	return ','
}

// CleanRow trims every cell and drops the blank ones. Later indexes shift left,
// and column maps are built against cleaned rows for that reason.
func CleanRow(row []string) []string {
	out := make([]string, 0, len(row))
	for _, cell := range row {
		if c := strings.TrimSpace(cell); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// MapHeader assigns header cells to fields. The first name-like column wins; a later
// one is ignored rather than matched against the other fields. Phone is checked
// before number so that "phone number" maps to phone.
func MapHeader(header []string) ColumnMap {
	m := ColumnMap{}
	for i, cell := range header {
		col := strings.ToLower(cell)
		switch {
		case containsAny(col, nameKeywords):
			if !m.HasName() {
				m[FieldName] = i
			}
		case containsAny(col, addressKeywords):
			setOnce(m, FieldAddress, i)
		case containsAny(col, phoneKeywords):
			setOnce(m, FieldPhone, i)
		case containsAny(col, numberKeywords):
			setOnce(m, FieldNumber, i)
		case containsAny(col, neighborhoodKeywords):
			setOnce(m, FieldNeighborhood, i)
		}
	}
	return m
}

func setOnce(m ColumnMap, f Field, i int) {
	if _, ok := m[f]; !ok {
		m[f] = i
	}
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

// ParseRow turns a cleaned row into a Draft. It reports false when the row has no
// usable name: the name cell is missing or purely numeric.
func ParseRow(row []string, m ColumnMap) (Draft, bool) {
	idx, ok := m[FieldName]
	if !ok || idx >= len(row) {
		return Draft{}, false
	}
	name := row[idx]
	if name == "" || isDigits(name) {
		return Draft{}, false
	}

	street := cell(row, m, FieldAddress)
	number := cell(row, m, FieldNumber)

	return Draft{
		Name:         customer.Truncate(name, customer.MaxNameLen),
		Address:      strings.Trim(street+", "+number, " ,-"),
		Neighborhood: customer.NormalizeNeighborhood(cell(row, m, FieldNeighborhood)),
		Phone:        customer.NormalizePhone(cell(row, m, FieldPhone)),
	}, true
}

func cell(row []string, m ColumnMap, f Field) string {
	idx, ok := m[f]
	if !ok || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func isDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}
