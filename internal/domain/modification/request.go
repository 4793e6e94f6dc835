package modification

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/okian/forecasthub/internal/domain/model"
)

var validate = validator.New()

// Request is the loosely-typed wire shape of a modification as produced by
// the intent extraction service or posted by a caller. Material and Type are
// accepted as aliases for Metric and EditType.
type Request struct {
	Metric    string   `json:"metric,omitempty" validate:"required,oneof=rooms cleaning security"`
	Material  string   `json:"material,omitempty" validate:"-"`
	EditType  string   `json:"edit_type,omitempty" validate:"required,oneof=percentage absolute set"`
	Type      string   `json:"type,omitempty" validate:"-"`
	Value     *float64 `json:"value" validate:"required"`
	StartDate string   `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string   `json:"end_date" validate:"required,datetime=2006-01-02"`
	Reason    string   `json:"reason,omitempty"`
}

// normalize folds the alias fields into the canonical ones.
func (r Request) normalize() Request {
	if strings.TrimSpace(r.Metric) == "" {
		r.Metric = r.Material
	}
	if strings.TrimSpace(r.EditType) == "" {
		r.EditType = r.Type
	}
	r.Metric = strings.ToLower(strings.TrimSpace(r.Metric))
	r.EditType = strings.ToLower(strings.TrimSpace(r.EditType))
	r.StartDate = strings.TrimSpace(r.StartDate)
	r.EndDate = strings.TrimSpace(r.EndDate)
	r.Material, r.Type = "", ""
	return r
}

// Parse validates a wire request and converts it into a typed modification.
// The returned error is always a *RejectionError.
func Parse(r Request) (model.Modification, error) {
	r = r.normalize()
	if err := validate.Struct(r); err != nil {
		return model.Modification{}, fromValidation(err)
	}
	start, err := model.ParseDate(r.StartDate)
	if err != nil {
		return model.Modification{}, reject(ReasonInvalidDate, fmt.Errorf("%w: %v", ErrInvalidDate, err))
	}
	end, err := model.ParseDate(r.EndDate)
	if err != nil {
		return model.Modification{}, reject(ReasonInvalidDate, fmt.Errorf("%w: %v", ErrInvalidDate, err))
	}
	mod := model.Modification{
		Metric:    model.Metric(r.Metric),
		EditType:  model.EditType(r.EditType),
		Value:     *r.Value,
		StartDate: start,
		EndDate:   end,
		Reason:    r.Reason,
	}
	if err := Validate(mod); err != nil {
		return model.Modification{}, err
	}
	return mod, nil
}

// ParseAll parses a batch, keeping the valid modifications in order and
// returning a rejection result for every invalid one. Indices refer to the
// position in reqs.
func ParseAll(reqs []Request) ([]model.Modification, []int, []model.ApplyResult) {
	mods := make([]model.Modification, 0, len(reqs))
	indices := make([]int, 0, len(reqs))
	var rejected []model.ApplyResult
	for i, r := range reqs {
		mod, err := Parse(r)
		if err != nil {
			rejected = append(rejected, model.ApplyResult{Index: i, Reason: ReasonOf(err), Message: err.Error()})
			continue
		}
		mods = append(mods, mod)
		indices = append(indices, i)
	}
	return mods, indices, rejected
}

// ToRequest converts a typed modification back into its wire shape.
func ToRequest(mod model.Modification) Request {
	v := mod.Value
	return Request{
		Metric:    string(mod.Metric),
		EditType:  string(mod.EditType),
		Value:     &v,
		StartDate: mod.StartDate.String(),
		EndDate:   mod.EndDate.String(),
		Reason:    mod.Reason,
	}
}

func fromValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return reject(ReasonInvalidPayload, fmt.Errorf("%w: %v", ErrInvalidPayload, err))
	}
	fe := verrs[0]
	switch fe.StructField() {
	case "Metric":
		return reject(ReasonUnknownMetric, fmt.Errorf("%w: %q", ErrUnknownMetric, fe.Value()))
	case "EditType":
		return reject(ReasonUnknownEditType, fmt.Errorf("%w: %q", ErrUnknownEditType, fe.Value()))
	case "StartDate", "EndDate":
		return reject(ReasonInvalidDate, fmt.Errorf("%w: %s=%v", ErrInvalidDate, fe.Field(), fe.Value()))
	}
	return reject(ReasonInvalidPayload, fmt.Errorf("%w: %s failed %s", ErrInvalidPayload, fe.Field(), fe.Tag()))
}
