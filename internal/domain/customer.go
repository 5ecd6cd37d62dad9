package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Customer struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	FullName    string    `json:"full_name"`
	DeviceToken string    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

type ProviderKind string

const (
	ProviderKindStudent  ProviderKind = "STUDENT"
	ProviderKindEmployee ProviderKind = "EMPLOYEE"
	ProviderKindCorp     ProviderKind = "CORP"
)

// providerKinds is the lookup table for provider variants. Behavior that
// depends on the variant is keyed off this table rather than on type checks.
var providerKinds = map[ProviderKind]struct {
	label       string
	isCorporate bool
}{
	ProviderKindStudent:  {label: "student", isCorporate: false},
	ProviderKindEmployee: {label: "employee", isCorporate: false},
	ProviderKindCorp:     {label: "corporate fleet", isCorporate: true},
}

func ParseProviderKind(s string) (ProviderKind, error) {
	k := ProviderKind(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := providerKinds[k]; !ok {
		return "", Validation("unknown provider kind %q", s)
	}
	return k, nil
}

func (k ProviderKind) Label() string {
	return providerKinds[k].label
}

func (k ProviderKind) IsCorporate() bool {
	return providerKinds[k].isCorporate
}

// ProviderRef identifies whoever offers a bike: a student, an employee or the
// corporate fleet operator.
type ProviderRef struct {
	Kind ProviderKind `json:"kind"`
	ID   uuid.UUID    `json:"id"`
}

func (p ProviderRef) Equal(other ProviderRef) bool {
	return p.Kind == other.Kind && p.ID == other.ID
}
