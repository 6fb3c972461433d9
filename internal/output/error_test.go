package output_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/chainpay/internal/output"
	payerr "github.com/mrz1836/chainpay/pkg/errors"
)

type failingWriter struct{}

func (failingWriter) Write(_ []byte) (int, error) {
	return 0, errors.New("write failed") //nolint:err113 // test error
}

func TestFormatError_Nil(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, output.FormatError(&buf, nil, output.FormatJSON))
	require.NoError(t, output.FormatError(&buf, nil, output.FormatText))
	assert.Empty(t, buf.String())
}

func TestFormatError_PayErrorJSON(t *testing.T) {
	t.Parallel()

	err := payerr.WithDetails(payerr.ErrTransactionReverted, map[string]string{
		"hash": "0xabc",
	})
	err = payerr.WithSuggestion(err, "check the explorer")

	var buf bytes.Buffer
	require.NoError(t, output.FormatError(&buf, err, output.FormatJSON))

	var got output.ErrorOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "TRANSACTION_REVERTED", got.Error.Code)
	assert.Equal(t, "0xabc", got.Error.Details["hash"])
	assert.Equal(t, "check the explorer", got.Error.Suggestion)
	assert.Equal(t, payerr.ExitChain, got.Error.ExitCode)
}

func TestFormatError_GenericJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, output.FormatError(&buf, errors.New("boom"), output.FormatJSON)) //nolint:err113 // test error

	var got output.ErrorOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "GENERAL_ERROR", got.Error.Code)
	assert.Equal(t, "boom", got.Error.Message)
	assert.Equal(t, payerr.ExitGeneral, got.Error.ExitCode)
}

func TestFormatError_TextSortsDetails(t *testing.T) {
	t.Parallel()

	err := payerr.WithDetails(payerr.ErrInsufficientBalance, map[string]string{
		"required":  "2",
		"available": "1",
		"asset":     "ETH",
	})

	var buf bytes.Buffer
	require.NoError(t, output.FormatError(&buf, err, output.FormatText))

	want := "Error: insufficient balance for payment\n\nDetails:\n  asset: ETH\n  available: 1\n  required: 2\n"
	assert.True(t, strings.HasPrefix(buf.String(), want), buf.String())
}

func TestFormatError_TextCause(t *testing.T) {
	t.Parallel()

	err := payerr.WithCause(payerr.ErrNetworkError, errors.New("dial tcp: refused")) //nolint:err113 // test error

	var buf bytes.Buffer
	require.NoError(t, output.FormatError(&buf, err, output.FormatText))
	assert.Contains(t, buf.String(), "Cause: dial tcp: refused\n")
}

func TestFormatError_WriterError(t *testing.T) {
	t.Parallel()

	assert.Error(t, output.FormatError(failingWriter{}, payerr.ErrBusy, output.FormatText))
	assert.Error(t, output.FormatError(failingWriter{}, payerr.ErrBusy, output.FormatJSON))
}

func TestFormatSuccess(t *testing.T) {
	t.Parallel()

	var text bytes.Buffer
	require.NoError(t, output.FormatSuccess(&text, "payment confirmed", output.FormatText))
	assert.Equal(t, "payment confirmed\n", text.String())

	var js bytes.Buffer
	require.NoError(t, output.FormatSuccess(&js, "payment confirmed", output.FormatJSON))
	var got map[string]string
	require.NoError(t, json.Unmarshal(js.Bytes(), &got))
	assert.Equal(t, "success", got["status"])
	assert.Equal(t, "payment confirmed", got["message"])
}
