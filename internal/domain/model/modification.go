package model

// EditType selects how a modification value is combined with the stored value.
type EditType string

// Known edit types.
const (
	EditPercentage EditType = "percentage"
	EditAbsolute   EditType = "absolute"
	EditSet        EditType = "set"
)

// Valid reports whether e is a known edit type.
func (e EditType) Valid() bool {
	switch e {
	case EditPercentage, EditAbsolute, EditSet:
		return true
	}
	return false
}

// Modification is one requested edit to a metric over an inclusive date range.
type Modification struct {
	Metric    Metric   `json:"metric"`
	EditType  EditType `json:"edit_type"`
	Value     float64  `json:"value"`
	StartDate Date     `json:"start_date"`
	EndDate   Date     `json:"end_date"`
	Reason    string   `json:"reason"`
}

// ApplyResult reports the outcome of one modification within a batch.
type ApplyResult struct {
	Index          int    `json:"index"`
	Applied        bool   `json:"applied"`
	RecordsChanged int    `json:"records_changed"`
	Reason         string `json:"reason,omitempty"`
	Message        string `json:"message,omitempty"`
}
