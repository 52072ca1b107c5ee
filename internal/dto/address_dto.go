package dto

import "move-quote-be/pkg/intake/address"

type AddressSearchResponse struct {
	Query      string              `json:"query"`
	Candidates []address.Candidate `json:"candidates"`
}
