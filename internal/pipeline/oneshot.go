package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"manifest/internal"
)

// ProcessInput runs one input from the command line. For "text" and "html"
// the input is the content itself; every other type names a file.
func (p *Processor) ProcessInput(ctx context.Context, inputType, input string, opts internal.ParseOptions) ([]internal.ShipmentRecord, error) {
	switch inputType {
	case "text":
		return p.ProcessText(ctx, "input", input, 0, opts), nil
	case "html":
		return p.processHTML(ctx, "input", input, opts), nil
	case "", "auto":
		return p.ProcessFile(ctx, input, opts)
	case "xlsx", "csv", "tsv", "txt", "pdf", "eml", "png", "jpg", "jpeg", "webp":
		blob, err := os.ReadFile(input)
		if err != nil {
			return nil, err
		}
		// The declared type wins over whatever extension the file has.
		name := filepath.Base(input) + "." + inputType
		return p.ProcessContent(ctx, name, blob, opts)
	default:
		return nil, fmt.Errorf("%w: input type %s", ErrUnsupportedInput, inputType)
	}
}
