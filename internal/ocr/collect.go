package ocr

import (
	"context"
	"encoding/json"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// destinationURIRe splits a gs://bucket/prefix destination URI.
var destinationURIRe = regexp.MustCompile(`^gs://([^/]+)/(.+)$`)

// outputRangeRe matches the page range Vision embeds in output file names,
// e.g. "ocr/abc123/output-3-to-4.json".
var outputRangeRe = regexp.MustCompile(`output-(\d+)-to-\d+`)

// annotateOutput mirrors the JSON layout of one Vision async output file.
type annotateOutput struct {
	Responses []pageResponse `json:"responses"`
}

type pageResponse struct {
	FullTextAnnotation *fullTextAnnotation `json:"fullTextAnnotation"`
}

type fullTextAnnotation struct {
	Text string `json:"text"`
}

// Collect reads every output object under the destination URI's prefix and
// returns their recognized text concatenated in page order.
//
// Output files are ordered by the starting page number embedded in their name;
// names without a parseable page range sort first. Objects whose name ends in
// "/" are folder markers and contribute nothing, as do page responses without
// a full-text annotation. An empty listing yields an empty string.
func (s *Service) Collect(ctx context.Context, destinationURI, bucket string) (string, error) {
	const op = "Collect"

	m := destinationURIRe.FindStringSubmatch(destinationURI)
	if m == nil {
		return "", WrapOCRError(op, ErrInvalidDestinationURI, destinationURI)
	}
	prefix := m[2]

	names, err := s.store.List(ctx, bucket, prefix)
	if err != nil {
		return "", WrapOCRError(op, err, "failed to list output objects")
	}

	// Ties (including multiple unparseable names) keep listing order.
	sort.SliceStable(names, func(i, j int) bool {
		return startPage(names[i]) < startPage(names[j])
	})

	var text strings.Builder
	for _, name := range names {
		if strings.HasSuffix(name, "/") {
			continue
		}

		data, err := s.store.Read(ctx, bucket, name)
		if err != nil {
			return "", WrapOCRError(op, err, "failed to read output object "+name)
		}

		var output annotateOutput
		if err := json.Unmarshal(data, &output); err != nil {
			return "", WrapOCRError(op, err, "malformed output object "+name)
		}

		for _, page := range output.Responses {
			if page.FullTextAnnotation != nil {
				text.WriteString(page.FullTextAnnotation.Text)
			}
		}
	}

	s.log.Debug().
		Str("bucket", bucket).
		Str("prefix", prefix).
		Int("objects", len(names)).
		Int("text_length", text.Len()).
		Msg("Collected OCR output")

	return text.String(), nil
}

// startPage extracts the starting page number from an output object name.
// Names without an "output-<N>-to-<M>" range sort before everything else.
func startPage(name string) int {
	m := outputRangeRe.FindStringSubmatch(name)
	if m == nil {
		return -1
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return -1
	}
	return n
}
