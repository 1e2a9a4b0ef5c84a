package validation_test

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/designduel/grading-pipeline/internal/middleware/validation"
)

// buildIntakeRequest assembles a valid multipart submission intake request,
// letting the caller override or omit individual fields to exercise
// rejection paths.
func buildIntakeRequest(t *testing.T, omit map[string]bool, phaseTimesJSON string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if !omit["problem_id"] {
		require.NoError(t, w.WriteField("problem_id", "p1"))
	}
	if !omit["phase_times"] {
		require.NoError(t, w.WriteField("phase_times", phaseTimesJSON))
	}

	for _, phase := range []string{"clarify", "estimate", "design", "explain"} {
		if omit["canvas_"+phase] {
			continue
		}
		fw, err := createFormFileWithType(w, "canvas_"+phase, phase+".png", "image/png")
		require.NoError(t, err)
		fw.Write(pngMagicBytes())
	}

	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/submissions", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func pngMagicBytes() []byte {
	return []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
}

// createFormFileWithType mirrors multipart.Writer.CreateFormFile but sets an
// explicit Content-Type instead of the default application/octet-stream, so
// the canvas MIME-allowlist check in ParseSubmissionIntake has something
// real to validate against.
func createFormFileWithType(w *multipart.Writer, fieldName, fileName, contentType string) (io.Writer, error) {
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, fieldName, fileName))
	h.Set("Content-Type", contentType)
	return w.CreatePart(h)
}

func parseViaApp(t *testing.T, req *http.Request) (*validation.Intake, error) {
	t.Helper()

	app := fiber.New()
	var gotIntake *validation.Intake
	var gotErr error

	app.Post("/submissions", func(c *fiber.Ctx) error {
		gotIntake, gotErr = validation.ParseSubmissionIntake(c, validation.Config{MaxFileBytes: 1024 * 1024})
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(req)
	require.NoError(t, err)
	io.Copy(io.Discard, resp.Body)

	return gotIntake, gotErr
}

func TestParseSubmissionIntake_ValidRequest(t *testing.T) {
	req := buildIntakeRequest(t, nil, `{"clarify":300,"estimate":300,"design":600,"explain":300}`)

	intake, err := parseViaApp(t, req)
	require.NoError(t, err)
	require.NotNil(t, intake)
	assert.Equal(t, "p1", intake.ProblemID)
	assert.Len(t, intake.Artifacts, 4)
}

func TestParseSubmissionIntake_MissingProblemID(t *testing.T) {
	req := buildIntakeRequest(t, map[string]bool{"problem_id": true}, `{"clarify":300,"estimate":300,"design":600,"explain":300}`)

	_, err := parseViaApp(t, req)
	assert.Error(t, err)
}

func TestParseSubmissionIntake_MissingCanvasForAPhase(t *testing.T) {
	req := buildIntakeRequest(t, map[string]bool{"canvas_design": true}, `{"clarify":300,"estimate":300,"design":600,"explain":300}`)

	_, err := parseViaApp(t, req)
	assert.Error(t, err)
}

func TestParseSubmissionIntake_MalformedPhaseTimes(t *testing.T) {
	req := buildIntakeRequest(t, nil, `not json`)

	_, err := parseViaApp(t, req)
	assert.Error(t, err)
}

func TestParseSubmissionIntake_PhaseTimesMissingKey(t *testing.T) {
	req := buildIntakeRequest(t, nil, `{"clarify":300,"estimate":300,"design":600}`)

	_, err := parseViaApp(t, req)
	assert.Error(t, err)
}

func TestParseSubmissionIntake_NegativePhaseTime(t *testing.T) {
	req := buildIntakeRequest(t, nil, `{"clarify":-1,"estimate":300,"design":600,"explain":300}`)

	_, err := parseViaApp(t, req)
	assert.Error(t, err)
}
