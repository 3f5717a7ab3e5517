// Package transport provides HTTP request/response types for the networks domain.
package transport

import (
	"github.com/pendergraft/netprofile/internal/networks/domain"
	"github.com/pendergraft/netprofile/internal/profile"
)

// ListResponse is the response for listing networks.
type ListResponse struct {
	Document domain.DocumentInfo `json:"document"`
	Data     []domain.Summary    `json:"data"`
}

// CompilersResponse is the response for the compiler selection.
type CompilersResponse struct {
	Solc SolcResponse `json:"solc"`
}

// SolcResponse describes the Solidity compiler.
type SolcResponse struct {
	Version string `json:"version"`
}

// ReportResponse is a validation report.
type ReportResponse struct {
	Source   string          `json:"source,omitempty"`
	Revision string          `json:"revision"`
	Valid    bool            `json:"valid"`
	Errors   int             `json:"errors"`
	Warnings int             `json:"warnings"`
	Issues   []profile.Issue `json:"issues"`
}

func toReportResponse(r *profile.Report) ReportResponse {
	return ReportResponse{
		Source:   r.Source,
		Revision: r.Revision,
		Valid:    r.Valid(),
		Errors:   len(r.Errors()),
		Warnings: len(r.Warnings()),
		Issues:   r.Issues,
	}
}
