package service

import (
	"context"
	"testing"
	"time"

	"secbank-cbs/internal/apperr"
	"secbank-cbs/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestAccountNumberPrefix(t *testing.T) {
	now := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "001SA26", AccountNumberPrefix("001", "SA", now))
	assert.Equal(t, "001SA26", AccountNumberPrefix("0012", "SAV", now))
	assert.Equal(t, "HOCA09", AccountNumberPrefix("HO", "CA", time.Date(2009, 6, 1, 0, 0, 0, 0, time.UTC)))
}

func TestNextAccountNumber(t *testing.T) {
	tests := []struct {
		name string
		max  string
		want string
	}{
		{"first in prefix", "", "001SA26-0000001"},
		{"after seven", "001SA26-0000007", "001SA26-0000008"},
		{"carries digits", "001SA26-0000999", "001SA26-0001000"},
		{"other prefix restarts", "002SA26-0000050", "001SA26-0000001"},
		{"unparsable restarts", "001SA26-00000XY", "001SA26-0000001"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextAccountNumber("001SA26", tt.max))
		})
	}
}

func TestCustomerNumbers(t *testing.T) {
	now := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "CIF26I", CustomerNumberPrefix(model.CustomerIndividual, now))
	assert.Equal(t, "CIF26C", CustomerNumberPrefix(model.CustomerCorporate, now))

	assert.Equal(t, "CIF26I000001", NextCustomerNumber("CIF26I", ""))
	assert.Equal(t, "CIF26C000124", NextCustomerNumber("CIF26C", "CIF26C000123"))
}

func TestNumberingCodesRejectPatternCharacters(t *testing.T) {
	ctx := context.Background()
	branches := NewBranchService(&memBranches{}, &recordingEmitter{})
	types := NewAccountTypeService(&memTypes{}, &recordingEmitter{})

	for _, code := range []string{"0_1", "0%1", "S-A", "", "  "} {
		_, err := branches.CreateBranch(ctx, 1, CreateBranchRequest{BranchCode: code, BranchName: "Makati"})
		assert.True(t, apperr.Is(err, apperr.CodeValidation), "branch %q", code)

		_, err = types.CreateAccountType(ctx, 1, CreateAccountTypeRequest{TypeCode: code})
		assert.True(t, apperr.Is(err, apperr.CodeValidation), "type %q", code)
	}
}
