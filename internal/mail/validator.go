package mail

import (
	"fmt"
	"sort"
	"strings"
)

// Validate checks params against the template's JSON Schema. Templates
// without a schema accept anything.
func (t *Template) Validate(params map[string]interface{}) error {
	if t.schema == nil {
		return nil
	}

	result := t.schema.Validate(params)
	if !result.IsValid() {
		var errorMessages []string
		for field, evalErr := range result.Errors {
			errorMessages = append(errorMessages, fmt.Sprintf("%s: %s", field, evalErr.Error()))
		}
		sort.Strings(errorMessages)
		return fmt.Errorf("params for template %s failed validation: %s", t.Meta.Name, strings.Join(errorMessages, "; "))
	}

	return nil
}
