package dto

// CasesData is a paginated response payload for the case list.
type CasesData struct {
	Cases       []CaseInfo `json:"cases"`
	Length      int        `json:"length"`
	TotalPages  int        `json:"totalPages"`
	CurrentPage int        `json:"currentPage"`
	Limit       int        `json:"pageSize"`
	TotalFines  int        `json:"totalFines"`
}
