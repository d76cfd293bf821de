package annotation

import (
	"fmt"
	"strconv"
	"strings"
)

// arg is one parsed argument: key=value, or a bare token with an empty key.
type arg struct {
	key   string
	value string
}

// Parse parses one annotation expression. Examples:
//
//	entity
//	table(posts)
//	string(length=200, nullable)
//	decimal(precision=10, scale=2)
//	belongsTo(related=User, otherKey=author_id)
//	hidden(secret, apiToken)
//
// Values may be single- or double-quoted when they contain commas or
// parentheses (default='now()'). Unknown annotation kinds, unknown option
// keys, and duplicate keys are errors.
func Parse(src string) (Annotation, error) {
	name, args, err := splitCall(src)
	if err != nil {
		return nil, err
	}

	switch name {
	case "entity":
		if err := wantNoArgs(name, args); err != nil {
			return nil, err
		}
		return &Entity{}, nil
	case "embeddable":
		if err := wantNoArgs(name, args); err != nil {
			return nil, err
		}
		return &Embeddable{}, nil
	case "softDeletes":
		if err := wantNoArgs(name, args); err != nil {
			return nil, err
		}
		return &SoftDeletes{}, nil
	case "timestamps":
		if err := wantNoArgs(name, args); err != nil {
			return nil, err
		}
		return &Timestamps{}, nil
	case "versionable":
		if err := wantNoArgs(name, args); err != nil {
			return nil, err
		}
		return &Versionable{}, nil
	case "table":
		v, err := principalArg(name, "name", args)
		if err != nil {
			return nil, err
		}
		if v == "" {
			return nil, fmt.Errorf("table annotation requires a name")
		}
		return &Table{Name: v}, nil
	case "embedded":
		v, err := principalArg(name, "class", args)
		if err != nil {
			return nil, err
		}
		return &Embedded{Class: v}, nil
	case "hidden":
		items, err := itemList(name, args)
		if err != nil {
			return nil, err
		}
		return &Hidden{Fields: items}, nil
	case "visible":
		items, err := itemList(name, args)
		if err != nil {
			return nil, err
		}
		return &Visible{Fields: items}, nil
	case "touches":
		items, err := itemList(name, args)
		if err != nil {
			return nil, err
		}
		return &Touches{Relations: items}, nil
	}

	if ct, err := ParseColumnType(name); err == nil {
		return parseAttribute(ct, args)
	}
	if rk, err := ParseRelationKind(name); err == nil {
		return parseRelation(rk, args)
	}
	return nil, fmt.Errorf("unknown annotation: %s", name)
}

// ParseList parses a semicolon-separated sequence of annotation expressions,
// the form used in struct tags: "string(length=50); unique".
func ParseList(src string) ([]Annotation, error) {
	var anns []Annotation
	for _, piece := range splitOutsideQuotes(src, ';') {
		piece = strings.TrimSpace(piece)
		if piece == "" {
			continue
		}
		ann, err := Parse(piece)
		if err != nil {
			return nil, err
		}
		anns = append(anns, ann)
	}
	return anns, nil
}

func splitCall(src string) (string, []arg, error) {
	s := strings.TrimSpace(src)
	if s == "" {
		return "", nil, fmt.Errorf("empty annotation")
	}
	open := strings.IndexByte(s, '(')
	if open < 0 {
		if !isIdent(s) {
			return "", nil, fmt.Errorf("malformed annotation: %s", src)
		}
		return s, nil, nil
	}
	name := strings.TrimSpace(s[:open])
	if !isIdent(name) {
		return "", nil, fmt.Errorf("malformed annotation: %s", src)
	}
	if !strings.HasSuffix(s, ")") {
		return "", nil, fmt.Errorf("malformed annotation, missing closing parenthesis: %s", src)
	}
	args, err := splitArgs(s[open+1 : len(s)-1])
	if err != nil {
		return "", nil, fmt.Errorf("malformed annotation %s: %w", name, err)
	}
	return name, args, nil
}

func splitArgs(body string) ([]arg, error) {
	if strings.TrimSpace(body) == "" {
		return nil, nil
	}
	var args []arg
	for _, piece := range splitOutsideQuotes(body, ',') {
		piece = strings.TrimSpace(piece)
		if piece == "" {
			return nil, fmt.Errorf("empty argument")
		}
		if eq := indexOutsideQuotes(piece, '='); eq >= 0 {
			key := strings.TrimSpace(piece[:eq])
			if !isIdent(key) {
				return nil, fmt.Errorf("bad option key: %s", key)
			}
			args = append(args, arg{key: key, value: unquote(strings.TrimSpace(piece[eq+1:]))})
		} else {
			args = append(args, arg{value: unquote(piece)})
		}
	}
	return args, nil
}

func splitOutsideQuotes(s string, sep byte) []string {
	var parts []string
	var quote byte
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == sep:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

func indexOutsideQuotes(s string, target byte) int {
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == target:
			return i
		}
	}
	return -1
}

func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func wantNoArgs(name string, args []arg) error {
	if len(args) > 0 {
		return fmt.Errorf("%s annotation takes no arguments", name)
	}
	return nil
}

// principalArg accepts at most one argument, bare or keyed with the given
// key, and returns its value.
func principalArg(name, key string, args []arg) (string, error) {
	switch len(args) {
	case 0:
		return "", nil
	case 1:
		a := args[0]
		if a.key != "" && a.key != key {
			return "", fmt.Errorf("unknown option %q for %s annotation", a.key, name)
		}
		return a.value, nil
	default:
		return "", fmt.Errorf("%s annotation takes at most one argument", name)
	}
}

// itemList accepts bare arguments only and returns them in order.
func itemList(name string, args []arg) ([]string, error) {
	items := make([]string, 0, len(args))
	for _, a := range args {
		if a.key != "" {
			return nil, fmt.Errorf("%s annotation takes a plain list, got %s=%s", name, a.key, a.value)
		}
		items = append(items, a.value)
	}
	return items, nil
}

func parseAttribute(ct ColumnType, args []arg) (*Attribute, error) {
	attr := &Attribute{Type: ct}
	seen := make(map[string]bool)
	for _, a := range args {
		key := a.key
		value := a.value
		if key == "" {
			// A bare token is a boolean facet flag.
			key = value
			value = "true"
			if !isBoolFacet(key) {
				return nil, fmt.Errorf("unknown option %q for %s attribute", key, ct)
			}
		}
		if seen[key] {
			return nil, fmt.Errorf("duplicate option %q for %s attribute", key, ct)
		}
		seen[key] = true

		switch key {
		case "nullable", "primary", "unique", "index", "unsigned", "autoIncrement":
			b, err := strconv.ParseBool(value)
			if err != nil {
				return nil, fmt.Errorf("option %q for %s attribute wants a boolean, got %q", key, ct, a.value)
			}
			switch key {
			case "nullable":
				attr.Nullable = &b
			case "primary":
				attr.Primary = &b
			case "unique":
				attr.Unique = &b
			case "index":
				attr.Index = &b
			case "unsigned":
				attr.Unsigned = &b
			case "autoIncrement":
				attr.AutoIncrement = &b
			}
		case "scale", "precision", "length":
			n, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("option %q for %s attribute wants an integer, got %q", key, ct, a.value)
			}
			switch key {
			case "scale":
				attr.Scale = &n
			case "precision":
				attr.Precision = &n
			case "length":
				attr.Length = &n
			}
		case "default":
			v := value
			attr.Default = &v
		default:
			return nil, fmt.Errorf("unknown option %q for %s attribute", key, ct)
		}
	}
	return attr, nil
}

func isBoolFacet(key string) bool {
	switch key {
	case "nullable", "primary", "unique", "index", "unsigned", "autoIncrement":
		return true
	}
	return false
}

func parseRelation(rk RelationKind, args []arg) (*Relation, error) {
	allowed := make(map[string]bool)
	for _, key := range relationOptionKeys[rk] {
		allowed[key] = true
	}

	rel := &Relation{Type: rk}
	seen := make(map[string]bool)
	for _, a := range args {
		key := a.key
		if key == "" {
			if a.value == "inverse" && allowed["inverse"] {
				key = "inverse"
				a.value = "true"
			} else if allowed["related"] {
				// One bare argument names the related class.
				key = "related"
			} else {
				return nil, fmt.Errorf("%s relations take no related class", rk)
			}
		}
		if !allowed[key] {
			return nil, fmt.Errorf("unknown option %q for %s relation", key, rk)
		}
		if seen[key] {
			return nil, fmt.Errorf("duplicate option %q for %s relation", key, rk)
		}
		seen[key] = true

		switch key {
		case "related":
			rel.Related = a.value
		case "name":
			rel.Options.Name = a.value
		case "type":
			rel.Options.Type = a.value
		case "table":
			rel.Options.Table = a.value
		case "through":
			rel.Options.Through = a.value
		case "foreignKey":
			rel.Options.ForeignKey = a.value
		case "otherKey":
			rel.Options.OtherKey = a.value
		case "localKey":
			rel.Options.LocalKey = a.value
		case "firstKey":
			rel.Options.FirstKey = a.value
		case "secondKey":
			rel.Options.SecondKey = a.value
		case "id":
			rel.Options.ID = a.value
		case "relation":
			rel.Options.Relation = a.value
		case "inverse":
			b, err := strconv.ParseBool(a.value)
			if err != nil {
				return nil, fmt.Errorf("option %q for %s relation wants a boolean, got %q", key, rk, a.value)
			}
			rel.Options.Inverse = b
		}
	}
	return rel, nil
}
