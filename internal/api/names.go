package api

import (
	"strings"
	"unicode"

	"github.com/desertthunder/fintx/internal/models"
)

// Names holds the five operation names derived for one entity.
type Names struct {
	List    string
	GetByID string
	Create  string
	Update  string
	Remove  string
}

// All returns the names in synthesis order.
func (n Names) All() []string {
	return []string{n.List, n.GetByID, n.Create, n.Update, n.Remove}
}

// DeriveNames computes operation names from the sanitized tag type, or the sanitized entity name when no tag
// type is given. When sanitizing leaves nothing the capitalized entity name is used as is.
//
// The tag type "Transactions" yields getAllTransactions, getTransactionsById, createTransactions,
// updateTransactions and removeTransactions.
func DeriveNames(entityName string, tagType models.TagType) Names {
	source := string(tagType)
	if source == "" {
		source = entityName
	}
	suffix := sanitize(source)
	if suffix == "" {
		suffix = capitalize(entityName)
	}
	return Names{
		List:    "getAll" + suffix,
		GetByID: "get" + suffix + "ById",
		Create:  "create" + suffix,
		Update:  "update" + suffix,
		Remove:  "remove" + suffix,
	}
}

// sanitize strips every character outside [A-Za-z0-9] and capitalizes the first letter.
func sanitize(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	return capitalize(b.String())
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
