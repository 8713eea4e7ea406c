package export

import (
	"bytes"
	"errors"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// VerifyPDF parses and validates a PDF and returns its page count.
func VerifyPDF(data []byte) (int, error) {
	if len(data) == 0 {
		return 0, newError(CodeVerifyFailed, "empty pdf", nil)
	}
	conf := model.NewDefaultConfiguration()
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return 0, newError(CodeVerifyFailed, "invalid pdf", err)
	}
	if ctx.PageCount < 1 {
		return 0, newError(CodeVerifyFailed, "pdf has no pages", errors.New("page count 0"))
	}
	return ctx.PageCount, nil
}
