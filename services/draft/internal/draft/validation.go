package draft

import (
	"strings"

	"github.com/appetiteclub/tablepos/pkg/enums/spice"
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

const maxNoteLength = 200

type addItemRequest struct {
	ItemID string `json:"item_id"`
}

type setQuantityRequest struct {
	Quantity *int `json:"quantity"`
}

type adjustLineRequest struct {
	Delta *int `json:"delta"`
}

type lineDetailsRequest struct {
	Note         string `json:"note"`
	SpicePercent *int   `json:"spice_percent"`
	SpiceLevel   *int   `json:"spice_level"`
	IsJain       bool   `json:"is_jain"`
}

type personsRequest struct {
	Persons *int `json:"persons"`
}

type markPrintedRequest struct {
	KotIDs []string `json:"kot_ids"`
}

func validateAddItem(req *addItemRequest) []ValidationError {
	var errors []ValidationError
	if strings.TrimSpace(req.ItemID) == "" {
		errors = append(errors, ValidationError{Field: "item_id", Message: "item_id is required"})
	}
	return errors
}

func validateSetQuantity(req *setQuantityRequest) []ValidationError {
	var errors []ValidationError
	if req.Quantity == nil {
		errors = append(errors, ValidationError{Field: "quantity", Message: "quantity is required"})
	}
	return errors
}

func validateAdjustLine(req *adjustLineRequest) []ValidationError {
	var errors []ValidationError
	if req.Delta == nil {
		errors = append(errors, ValidationError{Field: "delta", Message: "delta is required"})
	} else if *req.Delta > MaxLineQuantity || *req.Delta < -MaxLineQuantity {
		errors = append(errors, ValidationError{Field: "delta", Message: ErrInvalidQuantity.Error()})
	}
	return errors
}

func validateLineDetails(req *lineDetailsRequest) []ValidationError {
	var errors []ValidationError
	if len(req.Note) > maxNoteLength {
		errors = append(errors, ValidationError{Field: "note", Message: "note is too long"})
	}
	if req.SpicePercent != nil && (*req.SpicePercent < spice.MinPercent || *req.SpicePercent > spice.MaxPercent) {
		errors = append(errors, ValidationError{Field: "spice_percent", Message: "spice_percent must be between 0 and 100"})
	}
	if req.SpiceLevel != nil {
		if req.SpicePercent != nil {
			errors = append(errors, ValidationError{Field: "spice_level", Message: "send spice_level or spice_percent, not both"})
		} else if spice.ByValue(*req.SpiceLevel) == nil {
			errors = append(errors, ValidationError{Field: "spice_level", Message: "spice_level must be between 1 and 5"})
		}
	}
	return errors
}

func validatePersons(req *personsRequest) []ValidationError {
	var errors []ValidationError
	if req.Persons == nil {
		errors = append(errors, ValidationError{Field: "persons", Message: "persons is required"})
	} else if *req.Persons < 1 {
		errors = append(errors, ValidationError{Field: "persons", Message: ErrInvalidPersons.Error()})
	}
	return errors
}

func validateMarkPrinted(req *markPrintedRequest) []ValidationError {
	var errors []ValidationError
	if len(req.KotIDs) == 0 {
		errors = append(errors, ValidationError{Field: "kot_ids", Message: "at least one kot id is required"})
	}
	for _, id := range req.KotIDs {
		if strings.TrimSpace(id) == "" {
			errors = append(errors, ValidationError{Field: "kot_ids", Message: "kot ids cannot be empty"})
			break
		}
	}
	return errors
}
