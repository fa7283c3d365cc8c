package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/openpay-labs/x402-facilitator/types"
)

// Attribution field extraction is deliberately tolerant: payloads from
// older clients use different key names, so each logical attribute has
// an ordered alias list and a documented sentinel default. Extraction
// never fails; a field that cannot be found or parsed gets its default.
var (
	payerAliases   = []string{"payer", "from", "sender", "account"}
	amountAliases  = []string{"amount", "value", "maxAmountRequired"}
	pathAliases    = []string{"resource", "path", "url"}
	networkAliases = []string{"network", "chain", "chainId"}
)

// Sentinel defaults for unresolvable attribution fields.
const (
	UnknownPayer   = "unknown"
	UnknownPath    = "/unknown"
	UnknownNetwork = "unknown"
	UnknownTxHash  = "0xmock"
)

// attribution is the resolved set of fields a settlement is recorded
// under.
type attribution struct {
	Payer   string
	Amount  decimal.Decimal
	Path    string
	Network string
	TxHash  string
}

// extract resolves the attribution fields from the payload,
// requirements and settle response, in that order of preference.
func extract(payload *types.PaymentPayload, requirements *types.PaymentRequirements, res *types.SettleResponse) attribution {
	a := attribution{
		Payer:   UnknownPayer,
		Amount:  decimal.Zero,
		Path:    UnknownPath,
		Network: UnknownNetwork,
		TxHash:  UnknownTxHash,
	}

	if res != nil && res.Payer != "" {
		a.Payer = res.Payer
	} else if v := lookupString(payload, payerAliases); v != "" {
		a.Payer = v
	}

	amountStr := lookupString(payload, amountAliases)
	if amountStr == "" && requirements != nil {
		amountStr = requirements.MaxAmountRequired
	}
	if amountStr != "" {
		if amount, err := decimal.NewFromString(amountStr); err == nil {
			a.Amount = amount
		}
	}

	if requirements != nil && requirements.Resource != "" {
		a.Path = requirements.Resource
	} else if v := lookupString(payload, pathAliases); v != "" {
		a.Path = v
	}

	switch {
	case res != nil && res.Network != "":
		a.Network = res.Network
	case requirements != nil && requirements.Network != "":
		a.Network = requirements.Network
	case payload != nil && payload.Network != "":
		a.Network = payload.Network
	default:
		if v := lookupString(payload, networkAliases); v != "" {
			a.Network = v
		}
	}

	if res != nil && res.TransactionHash != "" {
		a.TxHash = res.TransactionHash
	}

	return a
}

// lookupString walks the payload body for the first alias that resolves
// to a non-empty string, checking the top level and then the nested
// authorization object schemes commonly carry.
func lookupString(payload *types.PaymentPayload, aliases []string) string {
	if payload == nil || payload.Payload == nil {
		return ""
	}

	maps := []map[string]interface{}{payload.Payload}
	if auth, ok := payload.Payload["authorization"].(map[string]interface{}); ok {
		maps = append(maps, auth)
	}

	for _, m := range maps {
		for _, alias := range aliases {
			if v, ok := m[alias].(string); ok && v != "" {
				return v
			}
		}
	}
	return ""
}
