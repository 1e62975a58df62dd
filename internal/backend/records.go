package backend

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ClientRecord is a client (user) entry of the backend directory.
type ClientRecord struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Email     string         `json:"email,omitempty"`
	Address   string         `json:"address,omitempty"`
	Branches  []Branch       `json:"branches,omitempty"`
	BranchIDs []string       `json:"branchIds,omitempty"`
	Raw       map[string]any `json:"-"`
}

// Branch is one location (sucursal) of a client.
type Branch struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
}

// DisplayName is the label shown to operators.
func (r ClientRecord) DisplayName() string {
	if r.Name != "" {
		return r.Name
	}
	if r.Email != "" {
		return r.Email
	}
	return r.ID
}

// UnmarshalJSON accepts the field spellings the backend has used over time.
func (r *ClientRecord) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Raw = raw
	r.ID = firstString(raw, "_id", "id", "userId", "clienteId")
	r.Name = firstString(raw, "nombre", "name", "razonSocial", "displayName", "fullName")
	if last := firstString(raw, "apellido", "lastName"); last != "" && r.Name != "" && !strings.Contains(r.Name, last) {
		r.Name = r.Name + " " + last
	}
	r.Email = firstString(raw, "email", "correo")
	r.Address = firstString(raw, "direccion", "address", "domicilio")

	r.Branches = nil
	r.BranchIDs = nil
	for _, key := range []string{"sucursales", "branches"} {
		list, ok := raw[key].([]any)
		if !ok {
			continue
		}
		for _, entry := range list {
			switch v := entry.(type) {
			case string:
				if id := strings.TrimSpace(v); id != "" {
					r.BranchIDs = append(r.BranchIDs, id)
				}
			case map[string]any:
				b := branchFromMap(v)
				if b.ID != "" {
					r.Branches = append(r.Branches, b)
				}
			}
		}
		break
	}
	return nil
}

// UnmarshalJSON accepts both Spanish and English field names.
func (b *Branch) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*b = branchFromMap(raw)
	return nil
}

func branchFromMap(raw map[string]any) Branch {
	b := Branch{
		ID:      firstString(raw, "_id", "id", "sucursalId"),
		Name:    firstString(raw, "nombre", "name", "alias"),
		Address: firstString(raw, "direccion", "address", "domicilio"),
	}
	if b.Name == "" {
		b.Name = b.Address
	}
	return b
}

// QuoteRecord is the committed quote echoed by the backend.
type QuoteRecord struct {
	ID  string         `json:"id"`
	Raw map[string]any `json:"raw,omitempty"`
}

func parseQuoteRecord(raw map[string]any) *QuoteRecord {
	rec := &QuoteRecord{Raw: raw}
	rec.ID = firstString(raw, "_id", "id", "cotizacionId", "quoteId")
	if rec.ID == "" {
		if nested, ok := raw["data"].(map[string]any); ok {
			rec.ID = firstString(nested, "_id", "id", "cotizacionId", "quoteId")
		}
	}
	return rec
}

// decodeClientList accepts a bare array or an envelope holding one.
func decodeClientList(body []byte) ([]ClientRecord, error) {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" || trimmed == "null" {
		return []ClientRecord{}, nil
	}
	if strings.HasPrefix(trimmed, "[") {
		var out []ClientRecord
		if err := json.Unmarshal([]byte(trimmed), &out); err != nil {
			return nil, fmt.Errorf("decode client list: %w", err)
		}
		return withIDs(out), nil
	}
	var env map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &env); err != nil {
		return nil, fmt.Errorf("decode client list: %w", err)
	}
	for _, key := range []string{"data", "users", "results", "items"} {
		if inner, ok := env[key]; ok {
			return decodeClientList(inner)
		}
	}
	return []ClientRecord{}, nil
}

func withIDs(in []ClientRecord) []ClientRecord {
	out := in[:0]
	for _, rec := range in {
		if rec.ID != "" {
			out = append(out, rec)
		}
	}
	return out
}

func firstString(data map[string]any, keys ...string) string {
	for _, key := range keys {
		if val, ok := data[key]; ok {
			if str := toString(val); str != "" {
				return str
			}
		}
	}
	return ""
}

func toString(val any) string {
	switch v := val.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case map[string]any:
		// Mongo extended JSON: {"$oid": "..."}
		return firstString(v, "$oid")
	default:
		return ""
	}
}
