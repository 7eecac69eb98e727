package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrNotFound is returned when an update targets a record that does not exist.
var ErrNotFound = errors.New("record not found")

// Op is a filter comparison operator.
type Op string

const (
	OpEq Op = "eq"
	OpIn Op = "in"

	// OpFold is case-insensitive string equality.
	OpFold Op = "fold"
)

// Filter is a single predicate on an indexed record field.
type Filter struct {
	Field  string
	Op     Op
	Values []any
}

// Eq matches records whose field equals v.
func Eq(field string, v any) Filter {
	return Filter{Field: field, Op: OpEq, Values: []any{v}}
}

// EqFold matches records whose field equals s ignoring case. Email
// fields are compared this way.
func EqFold(field, s string) Filter {
	return Filter{Field: field, Op: OpFold, Values: []any{s}}
}

// In matches records whose field is one of vs. An empty set matches nothing.
func In(field string, vs ...any) Filter {
	return Filter{Field: field, Op: OpIn, Values: vs}
}

// Query controls filtering, sorting, and limiting of a List call.
type Query struct {
	Filters []Filter

	// Sort names the field to order by; a leading "-" sorts descending.
	Sort string

	Limit int
}

// SortField splits Sort into the field name and direction.
func (q Query) SortField() (field string, desc bool) {
	if strings.HasPrefix(q.Sort, "-") {
		return q.Sort[1:], true
	}
	return q.Sort, false
}

var fieldPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Validate rejects field names that are not plain snake_case identifiers.
func (q Query) Validate() error {
	for _, f := range q.Filters {
		if !fieldPattern.MatchString(f.Field) {
			return fmt.Errorf("invalid filter field %q", f.Field)
		}
		switch f.Op {
		case OpEq, OpIn:
		case OpFold:
			if len(f.Values) == 1 {
				if _, ok := f.Values[0].(string); !ok {
					return fmt.Errorf("fold filter on %s needs a string value", f.Field)
				}
			}
		default:
			return fmt.Errorf("invalid filter op %q on %s", f.Op, f.Field)
		}
		if f.Op != OpIn && len(f.Values) != 1 {
			return fmt.Errorf("%s filter on %s needs exactly one value", f.Op, f.Field)
		}
	}
	if field, _ := q.SortField(); field != "" && !fieldPattern.MatchString(field) {
		return fmt.Errorf("invalid sort field %q", field)
	}
	return nil
}

// Store is the entity store every source adapter reads from and every
// action handler writes to. Records are JSON documents carrying an "id".
type Store interface {
	List(ctx context.Context, entity string, q Query) ([]json.RawMessage, error)
	Update(ctx context.Context, entity, id string, fields map[string]any) error
	Create(ctx context.Context, entity string, fields map[string]any) (json.RawMessage, error)
}

// Dismissals is the client-local override layer for dismissed notifications.
// It is consulted before remote read receipts so that a notification the
// viewer dismissed stays hidden even if the remote receipt write failed or
// raced with another viewer's update.
type Dismissals interface {
	Dismissed(ctx context.Context, viewerKey string) (map[string]bool, error)
	Dismiss(ctx context.Context, viewerKey, notificationID string) error
}

// ListInto runs a List call and decodes every record into T.
func ListInto[T any](
	ctx context.Context,
	s Store,
	entity string,
	q Query,
) ([]T, error) {
	raw, err := s.List(ctx, entity, q)
	if err != nil {
		return nil, err
	}

	out := make([]T, 0, len(raw))
	for i, r := range raw {
		var v T
		if err := json.Unmarshal(r, &v); err != nil {
			return nil, fmt.Errorf("decoding %s record %d: %w", entity, i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// Fields converts a record struct into the field map accepted by Create
// and Update, using its JSON field names.
func Fields(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshaling fields: %w", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("unmarshaling fields: %w", err)
	}
	return fields, nil
}
