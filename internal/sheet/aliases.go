package sheet

import "strings"

// Canonical logical fields of the content sheets. The order of
// canonicalFieldOrder is part of the contract: fields are resolved one by one
// in that order, and within a field the first alias present in the header
// wins.
const (
	FieldTitle       = "titulo"
	FieldKeyword     = "keyword"
	FieldDescription = "descripcion"
	FieldCategory    = "categoria"
	FieldExecuteFlag = "ejecutar"
	FieldSlug        = "slug"
)

var canonicalFieldOrder = []string{
	FieldTitle,
	FieldKeyword,
	FieldDescription,
	FieldCategory,
	FieldExecuteFlag,
	FieldSlug,
}

var headerAliases = map[string][]string{
	FieldTitle:       {"título", "titulo"},
	FieldKeyword:     {"keyword principal", "keyword_principal"},
	FieldDescription: {"descripción para el gpt", "descripcion para el gpt", "descripcion", "descripción"},
	FieldCategory:    {"categoría", "categoria"},
	FieldExecuteFlag: {"ejecutar?", "ejecutar", "status", "estado"},
	FieldSlug:        {"slug", "url"},
}

// additionalAliases extends the permissive write-back lookup for auxiliary
// columns whose header spelling is not one of the primary aliases.
var additionalAliases = map[string][]string{
	"slug":    {"slug", "url"},
	"url":     {"url", "link"},
	"post_id": {"post_id", "post id", "id", "postid"},
	"excerpt": {"extracto", "extracto_200", "extracto 200", "resumen", "excerpt"},
}

// HeaderMap is the resolved view of one sheet's header row. The zero value
// behaves as an unresolved header: every lookup misses.
type HeaderMap struct {
	fields     map[string]int
	aliasUsed  map[string]string
	normalized map[string]int
	length     int
}

// ResolveHeader maps a raw header row to canonical fields. Header cells are
// trimmed and lower-cased before matching; a field none of whose aliases
// appear stays unmapped. A zero-column header yields an empty mapping, not an
// error.
func ResolveHeader(header []string) HeaderMap {
	normalized := make(map[string]int, len(header))
	for idx, cell := range header {
		normalized[strings.ToLower(strings.TrimSpace(cell))] = idx
	}

	fields := make(map[string]int, len(canonicalFieldOrder))
	aliasUsed := make(map[string]string, len(canonicalFieldOrder))
	for _, field := range canonicalFieldOrder {
		for _, alias := range headerAliases[field] {
			if idx, ok := normalized[alias]; ok {
				fields[field] = idx
				aliasUsed[field] = alias
				break
			}
		}
	}

	return HeaderMap{
		fields:     fields,
		aliasUsed:  aliasUsed,
		normalized: normalized,
		length:     len(header),
	}
}

// Column returns the column index resolved for a canonical field.
func (m HeaderMap) Column(field string) (int, bool) {
	idx, ok := m.fields[field]
	return idx, ok
}

// AliasUsed reports which alias spelling resolved a canonical field.
func (m HeaderMap) AliasUsed(field string) (string, bool) {
	alias, ok := m.aliasUsed[field]
	return alias, ok
}

// HeaderColumn returns the column index of a literal (normalized) header name.
func (m HeaderMap) HeaderColumn(name string) (int, bool) {
	idx, ok := m.normalized[strings.ToLower(strings.TrimSpace(name))]
	return idx, ok
}

// LookupColumn resolves a write-back key through the permissive alias chain:
// the key itself, its primary aliases, then the additional write-back
// aliases, in declared order.
func (m HeaderMap) LookupColumn(key string) (int, bool) {
	normalizedKey := strings.ToLower(strings.TrimSpace(key))
	if normalizedKey == "" {
		return 0, false
	}
	if idx, ok := m.normalized[normalizedKey]; ok {
		return idx, true
	}
	for _, alias := range headerAliases[normalizedKey] {
		if idx, ok := m.normalized[alias]; ok {
			return idx, true
		}
	}
	for _, alias := range additionalAliases[normalizedKey] {
		if idx, ok := m.normalized[alias]; ok {
			return idx, true
		}
	}
	return 0, false
}

// Resolved reports whether any canonical field mapped to a column.
func (m HeaderMap) Resolved() bool {
	return len(m.fields) > 0
}

// Len returns the header row length.
func (m HeaderMap) Len() int {
	return m.length
}
