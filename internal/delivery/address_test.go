package delivery

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCandidateAddresses(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"national mobile with nine", "11987654321", []string{"5511987654321", "551187654321"}},
		{"national without nine", "1187654321", []string{"551187654321", "5511987654321"}},
		{"formatted international", "+55 (11) 98765-4321", []string{"5511987654321", "551187654321"}},
		{"jid suffix stripped", "5511987654321@s.whatsapp.net", []string{"5511987654321", "551187654321"}},
		{"landline style eight digits", "551134567890", []string{"551134567890", "5511934567890"}},
		{"foreign number untouched", "+14155552671", []string{"14155552671"}},
		{"no digits", "n/a", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CandidateAddresses(tt.raw, "55"))
		})
	}
}

func TestRecipientKey_CollapsesSurfaceForms(t *testing.T) {
	a := RecipientKey("11987654321", "55")
	b := RecipientKey("+55 11 8765-4321", "55")
	c := RecipientKey("5511987654321@s.whatsapp.net", "55")

	assert.Equal(t, "551187654321", a)
	assert.Equal(t, a, b)
	assert.Equal(t, a, c)
}
