package schema

import (
	"crypto/sha1"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/jinzhu/inflection"
)

// MaxIdentifierLength is the database identifier limit table and index
// names are held to.
const MaxIdentifierLength = 64

// Namer namer interface
type Namer interface {
	TableName(entity string) string
	ColumnName(table, field string) string
	RelationTableName(kind Kind, left, right string) string
	RelationColumns(kind Kind, left, right string) (string, string)
	IndexName(table string, columns ...string) string
	UniqueIndexName(table string, columns ...string) string
}

// NamingStrategy tables, columns naming strategy
type NamingStrategy struct {
	TablePrefix   string
	SingularTable bool
}

// TableName convert entity name to table name
func (ns NamingStrategy) TableName(str string) string {
	if ns.SingularTable {
		return truncate(ns.TablePrefix + toDBName(str))
	}
	return truncate(ns.TablePrefix + inflection.Plural(toDBName(str)))
}

// ColumnName convert field name to column name
func (ns NamingStrategy) ColumnName(table, field string) string {
	return toDBName(field)
}

// RelationTableName derives the join table name for a relationship. The
// scheme is shared with the relation engine so both sides agree without
// coordination:
//
//	OneToOne   on a, b       -> rel_1_{a}_1_{b}
//	OneToMany  one o, many m -> rel_1_{o}_M_{m}
//	ManyToMany on a, b       -> rel_N_{a}_M_{b}
//
// Participant names are lower-cased before substitution and the result is
// cut to the 64-character prefix when longer, so regenerating from the same
// metadata always yields the same name.
func (ns NamingStrategy) RelationTableName(kind Kind, left, right string) string {
	left, right = strings.ToLower(left), strings.ToLower(right)

	var name string
	switch kind {
	case OneToOne:
		name = fmt.Sprintf("rel_1_%s_1_%s", left, right)
	case OneToMany:
		name = fmt.Sprintf("rel_1_%s_M_%s", left, right)
	case ManyToMany:
		name = fmt.Sprintf("rel_N_%s_M_%s", left, right)
	}
	return truncate(ns.TablePrefix + name)
}

// RelationColumns derives the two identity-reference column names for a
// relationship, left side first. OneToMany columns carry their role so a
// self-describing join row never depends on descriptor ordering.
func (ns NamingStrategy) RelationColumns(kind Kind, left, right string) (string, string) {
	left, right = strings.ToLower(left), strings.ToLower(right)

	if kind == OneToMany {
		return "one_" + left + "_id", "many_" + right + "_id"
	}
	return left + "_id", right + "_id"
}

// IndexName generate index name
func (ns NamingStrategy) IndexName(table string, columns ...string) string {
	return compressIndexName(fmt.Sprintf("idx_%s_%s", table, strings.Join(columns, "_")))
}

// UniqueIndexName generate unique index name
func (ns NamingStrategy) UniqueIndexName(table string, columns ...string) string {
	return compressIndexName(fmt.Sprintf("uix_%s_%s", table, strings.Join(columns, "_")))
}

func truncate(name string) string {
	if len(name) > MaxIdentifierLength {
		return name[:MaxIdentifierLength]
	}
	return name
}

func compressIndexName(idxName string) string {
	if utf8.RuneCountInString(idxName) > MaxIdentifierLength {
		h := sha1.New()
		h.Write([]byte(idxName))
		bs := h.Sum(nil)

		idxName = idxName[:MaxIdentifierLength-8] + fmt.Sprintf("%x", bs)[:8]
	}
	return idxName
}

var (
	smap sync.Map
	// https://github.com/golang/lint/blob/master/lint.go#L770
	commonInitialisms         = []string{"API", "ASCII", "CPU", "CSS", "DNS", "EOF", "GUID", "HTML", "HTTP", "HTTPS", "ID", "IP", "JSON", "LHS", "QPS", "RAM", "RHS", "RPC", "SLA", "SMTP", "SSH", "TLS", "TTL", "UID", "UI", "UUID", "URI", "URL", "UTF8", "VM", "XML", "XSRF", "XSS"}
	commonInitialismsReplacer *strings.Replacer
)

func init() {
	var commonInitialismsForReplacer []string
	for _, initialism := range commonInitialisms {
		commonInitialismsForReplacer = append(commonInitialismsForReplacer, initialism, strings.Title(strings.ToLower(initialism)))
	}
	commonInitialismsReplacer = strings.NewReplacer(commonInitialismsForReplacer...)
}

func toDBName(name string) string {
	if name == "" {
		return ""
	} else if v, ok := smap.Load(name); ok {
		return fmt.Sprint(v)
	}

	var (
		value                          = commonInitialismsReplacer.Replace(name)
		buf                            strings.Builder
		lastCase, nextCase, nextNumber bool // upper case == true
		curCase                        = value[0] <= 'Z' && value[0] >= 'A'
	)

	for i, v := range value[:len(value)-1] {
		nextCase = value[i+1] <= 'Z' && value[i+1] >= 'A'
		nextNumber = value[i+1] >= '0' && value[i+1] <= '9'

		if curCase {
			if lastCase && (nextCase || nextNumber) {
				buf.WriteRune(v + 32)
			} else {
				if i > 0 && value[i-1] != '_' && value[i+1] != '_' {
					buf.WriteByte('_')
				}
				buf.WriteRune(v + 32)
			}
		} else {
			buf.WriteRune(v)
		}

		lastCase = curCase
		curCase = nextCase
	}

	if curCase {
		if !lastCase && len(value) > 1 {
			buf.WriteByte('_')
		}
		buf.WriteByte(value[len(value)-1] + 32)
	} else {
		buf.WriteByte(value[len(value)-1])
	}

	result := buf.String()
	smap.Store(name, result)
	return result
}
