package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTerminalID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "uppercased", input: "term-01", want: "TERM-01"},
		{name: "underscore_allowed", input: "T_1", want: "T_1"},
		{name: "trimmed", input: "  t1a ", want: "T1A"},
		{name: "too_short", input: "T1", wantErr: true},
		{name: "too_long", input: strings.Repeat("A", 51), wantErr: true},
		{name: "max_length", input: strings.Repeat("a", 50), want: strings.Repeat("A", 50)},
		{name: "space_inside", input: "TERM 01", wantErr: true},
		{name: "punctuation", input: "TERM.01", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeTerminalID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsValidationError(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTerminal_AcceptsPayments(t *testing.T) {
	tests := []struct {
		status   TerminalStatus
		expected bool
	}{
		{TerminalStatusOnline, true},
		{TerminalStatusMaintenance, true},
		{TerminalStatusOffline, false},
		{TerminalStatusError, false},
		{TerminalStatusBlocked, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			term := &Terminal{Status: tt.status}
			assert.Equal(t, tt.expected, term.AcceptsPayments())
		})
	}
}

func TestTerminal_PaymentMethods(t *testing.T) {
	term := &Terminal{SupportsNFC: true, SupportsQR: true}
	assert.Equal(t, []PaymentMethod{PaymentMethodNFCCard, PaymentMethodNFCPhone, PaymentMethodQRCode}, term.PaymentMethods())
	assert.True(t, term.Supports(PaymentMethodQRCode))
	assert.False(t, term.Supports(PaymentMethodBiometryFace))
}
