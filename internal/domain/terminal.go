package domain

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TerminalStatus is the operational state reported for a terminal
type TerminalStatus string

const (
	TerminalStatusOnline      TerminalStatus = "online"
	TerminalStatusOffline     TerminalStatus = "offline"
	TerminalStatusMaintenance TerminalStatus = "maintenance"
	TerminalStatusError       TerminalStatus = "error"
	TerminalStatusBlocked     TerminalStatus = "blocked"
)

// TerminalType is the hardware class of a terminal
type TerminalType string

const (
	TerminalTypePayment     TerminalType = "payment"
	TerminalTypeSelfService TerminalType = "self_service"
	TerminalTypeKiosk       TerminalType = "kiosk"
)

var (
	terminalIDPattern     = regexp.MustCompile(`^[A-Za-z0-9_-]{3,50}$`)
	terminalLookupPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,50}$`)
)

// Terminal represents a registered payment terminal
type Terminal struct {
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	LastHeartbeat     *time.Time      `json:"last_heartbeat,omitempty"`
	TerminalID        string          `json:"terminal_id"`
	Name              string          `json:"name"`
	Location          string          `json:"location"`
	Description       string          `json:"description,omitempty"`
	IPAddress         string          `json:"ip_address,omitempty"`
	FirmwareVersion   string          `json:"firmware_version,omitempty"`
	HardwareInfo      string          `json:"hardware_info,omitempty"`
	TerminalType      TerminalType    `json:"terminal_type"`
	Status            TerminalStatus  `json:"status"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	TotalTransactions int64           `json:"total_transactions"`
	SupportsNFC       bool            `json:"supports_nfc"`
	SupportsQR        bool            `json:"supports_qr"`
	SupportsBiometry  bool            `json:"supports_biometry"`
}

// IsValid reports whether s is a known terminal status
func (s TerminalStatus) IsValid() bool {
	switch s {
	case TerminalStatusOnline, TerminalStatusOffline, TerminalStatusMaintenance,
		TerminalStatusError, TerminalStatusBlocked:
		return true
	}
	return false
}

// IsValid reports whether t is a known terminal type
func (t TerminalType) IsValid() bool {
	switch t {
	case TerminalTypePayment, TerminalTypeSelfService, TerminalTypeKiosk:
		return true
	}
	return false
}

// AcceptsPayments reports whether new payment requests may be opened
func (t *Terminal) AcceptsPayments() bool {
	return t.Status == TerminalStatusOnline || t.Status == TerminalStatusMaintenance
}

// Supports reports whether the terminal hardware can take the given method
func (t *Terminal) Supports(m PaymentMethod) bool {
	switch m {
	case PaymentMethodNFCCard, PaymentMethodNFCPhone:
		return t.SupportsNFC
	case PaymentMethodQRCode:
		return t.SupportsQR
	case PaymentMethodBiometryFace, PaymentMethodBiometryFingerprint:
		return t.SupportsBiometry
	}
	return false
}

// PaymentMethods lists the methods enabled by the terminal's capabilities
func (t *Terminal) PaymentMethods() []PaymentMethod {
	var methods []PaymentMethod
	if t.SupportsNFC {
		methods = append(methods, PaymentMethodNFCCard, PaymentMethodNFCPhone)
	}
	if t.SupportsQR {
		methods = append(methods, PaymentMethodQRCode)
	}
	if t.SupportsBiometry {
		methods = append(methods, PaymentMethodBiometryFace, PaymentMethodBiometryFingerprint)
	}
	return methods
}

// NormalizeTerminalID validates the identifier and returns it upper-cased
func NormalizeTerminalID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if !terminalIDPattern.MatchString(id) {
		return "", Validation("terminal_id", "terminal id must be 3-50 characters of letters, digits, '-' or '_'")
	}
	return strings.ToUpper(id), nil
}

// CanonicalTerminalID upper-cases an id used to look a terminal up. It only
// rejects ids that could never have been stored, so fleets provisioned
// before the 3-character minimum keep working.
func CanonicalTerminalID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if !terminalLookupPattern.MatchString(id) {
		return "", Validation("terminal_id", "terminal id may only contain letters, digits, '-' or '_'")
	}
	return strings.ToUpper(id), nil
}
