package paths

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/ayush/skillpath/backend/internal/models"
	"github.com/ayush/skillpath/backend/internal/shared"
)

// newPathSchema describes the body of POST /api/paths. Unknown properties
// such as id or createdAt are allowed and ignored.
const newPathSchema = `{
  "type": "object",
  "required": ["title", "description", "steps"],
  "properties": {
    "title":       {"type": "string", "minLength": 1},
    "description": {"type": "string"},
    "steps": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["title", "description"],
        "properties": {
          "title":       {"type": "string"},
          "description": {"type": "string"},
          "resources":   {"type": "array", "items": {"type": "string"}}
        }
      }
    }
  }
}`

var newPathValidator = mustCompile(newPathSchema)

func mustCompile(schema string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schema))
	if err != nil {
		panic(fmt.Sprintf("paths: bad schema: %v", err))
	}
	return s
}

// parseNewPath validates body against newPathSchema and decodes it. All
// failures wrap shared.ErrValidation.
func parseNewPath(body []byte) (models.NewPath, error) {
	var np models.NewPath

	result, err := newPathValidator.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return np, fmt.Errorf("%w: malformed JSON: %v", shared.ErrValidation, err)
	}
	if !result.Valid() {
		return np, fmt.Errorf("%w: %s", shared.ErrValidation, describe(result.Errors()))
	}

	if err := json.Unmarshal(body, &np); err != nil {
		return np, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	np.Steps = models.CopySteps(np.Steps)
	return np, nil
}

// describe joins the first few schema errors.
func describe(errs []gojsonschema.ResultError) string {
	const max = 3
	msgs := make([]string, 0, max)
	for i, e := range errs {
		if i == max {
			msgs = append(msgs, fmt.Sprintf("and %d more", len(errs)-max))
			break
		}
		msgs = append(msgs, e.String())
	}
	return strings.Join(msgs, "; ")
}

// parseGeneratedPath holds model output to the same schema as a saved path,
// so whatever Generate returns can be posted back to Create unchanged.
func parseGeneratedPath(content []byte) (*models.GeneratedPath, error) {
	np, err := parseNewPath(content)
	if err != nil {
		return nil, err
	}
	return &models.GeneratedPath{Title: np.Title, Description: np.Description, Steps: np.Steps}, nil
}
