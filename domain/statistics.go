package domain

type Statistics struct {
	TotalCalls    int64 `json:"totalCalls"`
	SpamCalls     int64 `json:"spamCalls"`
	FilteredCalls int64 `json:"filteredCalls"`
}
