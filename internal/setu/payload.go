package setu

// Wire shape of a completed session payload: fips -> accounts ->
// {profile.holders, summary, transactions}. The summary block and transaction
// entries carry account-type-specific fields with inconsistent types across
// FIPs (numbers arrive as JSON numbers or strings), so those stay untyped and
// the ingestion pipeline parses them leniently.
type SessionPayload struct {
	FIPs []FIPBlock `json:"fips"`
}

type FIPBlock struct {
	FIPID    string         `json:"fipID"`
	Accounts []AccountBlock `json:"accounts"`
}

type AccountBlock struct {
	LinkRefNumber   string `json:"linkRefNumber"`
	MaskedAccNumber string `json:"maskedAccNumber"`
	Data            struct {
		Account *AccountInfo `json:"account"`
	} `json:"data"`
}

type AccountInfo struct {
	Type    string `json:"type"`
	Profile struct {
		Holders HolderGroup `json:"holders"`
	} `json:"profile"`
	Summary      map[string]any `json:"summary"`
	Transactions struct {
		Transaction []map[string]any `json:"transaction"`
	} `json:"transactions"`
}

type HolderGroup struct {
	Type   string   `json:"type"`
	Holder []Holder `json:"holder"`
}

type Holder struct {
	Name           string `json:"name"`
	DOB            string `json:"dob"`
	Address        string `json:"address"`
	Email          string `json:"email"`
	Mobile         string `json:"mobile"`
	Nominee        string `json:"nominee"`
	PAN            string `json:"pan"`
	CKYCCompliance string `json:"ckycCompliance"`
}

// Empty reports whether the account block carried no usable account payload.
func (a *AccountInfo) Empty() bool {
	if a == nil {
		return true
	}
	return a.Type == "" &&
		len(a.Summary) == 0 &&
		len(a.Profile.Holders.Holder) == 0 &&
		len(a.Transactions.Transaction) == 0
}
