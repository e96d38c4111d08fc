package explorer

// apiResponse is the explorer API envelope. Status is "1" on success and
// "0" both for errors and for empty result sets ("No transactions found").
type apiResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// RawTransfer is one token transfer object as returned by the explorer
// API. All numeric fields arrive as decimal strings.
type RawTransfer struct {
	BlockNumber     string `json:"blockNumber"`
	TimeStamp       string `json:"timeStamp"`
	Hash            string `json:"hash"`
	From            string `json:"from"`
	ContractAddress string `json:"contractAddress"`
	To              string `json:"to"`
	Value           string `json:"value"`
	TokenName       string `json:"tokenName"`
	TokenSymbol     string `json:"tokenSymbol"`
	TokenDecimal    string `json:"tokenDecimal"`
}

// RawHolder is one holder entry from the token holder list endpoint.
type RawHolder struct {
	Address  string `json:"TokenHolderAddress"`
	Quantity string `json:"TokenHolderQuantity"`
}
