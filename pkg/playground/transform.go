package playground

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mmcat/resultshape"
	"github.com/mmcat/resultshape/pkg/planfmt"
	"github.com/mmcat/resultshape/pkg/resultfmt"
	"github.com/mmcat/resultshape/pkg/shapeschema"
)

// Result holds the playground panels.
type Result struct {
	Plan       string   `json:"plan"`
	Output     string   `json:"output"`
	Relation   string   `json:"relation"`
	ListOutput bool     `json:"listOutput"`
	Source     string   `json:"source"` // schema summaries
	Target     string   `json:"target"`
	Warnings   []string `json:"warnings"`
}

// Reshape parses a playground document, compiles its plan and runs it on the
// document's data. Data that does not conform to the source structure is
// reported as warnings; the plan still runs.
func Reshape(ctx context.Context, text string) (*Result, error) {
	doc, err := ParseDocument(text)
	if err != nil {
		return nil, err
	}
	return ReshapeDocument(ctx, doc)
}

func ReshapeDocument(ctx context.Context, doc *Document) (*Result, error) {
	format, err := resultfmt.ParseFormat(doc.Options.Format)
	if err != nil {
		return nil, fmt.Errorf("options: %w", err)
	}

	opts := resultshape.DefaultOptions()
	opts.StrictNulls = doc.Options.StrictNulls
	plan, err := resultshape.Compile(doc.Source, doc.Target, opts)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Plan:       planfmt.Format(plan, planfmt.Config{}),
		Relation:   plan.Relation().String(),
		ListOutput: plan.ListOutput(),
		Source:     shapeschema.Summary(shapeschema.ToSchema(doc.Source), 3),
		Target:     shapeschema.Summary(shapeschema.ToSchema(doc.Target.CopyAs(plan.ListOutput())), 3),
		Warnings:   []string{},
	}

	var invalid *shapeschema.ValidationError
	if err := shapeschema.Validate(doc.Source, doc.Data); errors.As(err, &invalid) {
		result.Warnings = append(result.Warnings, invalid.Problems...)
	} else if err != nil {
		return nil, err
	}

	value, err := plan.TransformContext(ctx, doc.Data)
	if err != nil {
		return nil, err
	}
	var out strings.Builder
	err = resultfmt.Render(&out, doc.Target, value, resultfmt.Options{
		Format:     format,
		Indent:     2,
		TimeFormat: doc.Options.TimeFormat,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render output: %w", err)
	}
	result.Output = out.String()
	return result, nil
}
