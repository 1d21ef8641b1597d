package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"

	"agendazap/utils"

	"go.uber.org/zap"
)

// VerifySignature checks a Mercado Pago x-signature header against the
// configured webhook secret. The exact signed base varies across MP products,
// so a set of known candidate bases is tried.
//
// Soft semantics: with no secret configured everything passes; with a secret
// but no (or malformed) header, the outcome depends on the require flag. Only
// a present, well-formed header that matches no candidate is rejected outright
// when require is set.
func VerifySignature(secret, header, body, path, query string, require bool) bool {
	if secret == "" {
		return true
	}
	if header == "" {
		return !require
	}

	var ts, v1 string
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "ts":
			ts = kv[1]
		case "v1":
			v1 = kv[1]
		}
	}
	if ts == "" || v1 == "" {
		return !require
	}

	candidates := []string{
		ts + body,
		ts + ":" + body,
		ts + path + query,
		ts + path,
		path + ts,
		ts,
	}

	mac := hmac.New(sha256.New, []byte(secret))
	for _, base := range candidates {
		mac.Reset()
		mac.Write([]byte(base))
		calc := hex.EncodeToString(mac.Sum(nil))
		if hmac.Equal([]byte(calc), []byte(v1)) {
			return true
		}
	}

	utils.GetLogger().Warn("payment webhook signature mismatch",
		zap.String("ts", ts), zap.String("path", path), zap.Int("tried", len(candidates)))
	return !require
}

// ExtractPaymentID pulls the provider payment id from webhook inputs, trying
// the query string form, the body's data.id and finally a resource URL.
func ExtractPaymentID(topic, queryID string, payload map[string]any) string {
	if strings.EqualFold(topic, "payment") && queryID != "" {
		return queryID
	}

	if data, ok := payload["data"].(map[string]any); ok {
		if id := scalarToString(data["id"]); id != "" {
			return id
		}
	}

	if res := scalarToString(payload["resource"]); strings.Contains(res, "/v1/payments/") {
		return res[strings.LastIndex(res, "/")+1:]
	}
	return ""
}

// scalarToString renders webhook id values, which arrive either as strings
// or as JSON numbers.
func scalarToString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}
