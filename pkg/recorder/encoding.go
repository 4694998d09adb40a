package recorder

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"fmt"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// encodeHistogram serialises a histogram using the library's own V2
// compressed wire format and base64-encodes it for embedding in JSON. This
// is the same format the standard HdrHistogram tooling (the Java
// HistogramLogReader, the online plotter, wrk2's report pipeline) reads, so
// latency_histogram round-trips through those tools without this package's
// cooperation.
func encodeHistogram(h *hdrhistogram.Histogram) (string, error) {
	encoded, err := h.EncodeV2Compressed()
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(encoded), nil
}

// decodeHistogram reverses encodeHistogram. It exists so tests (and any
// future report-inspection tooling) can verify the round-trip invariant.
// Decode auto-detects the V2/V2-compressed cookie, so this also accepts a
// payload produced by an independent, standard-conformant encoder.
func decodeHistogram(encoded string) (*hdrhistogram.Histogram, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("recorder: bad base64 histogram payload: %w", err)
	}
	return hdrhistogram.Decode(raw)
}

// encodeHgrmGzip renders the classic percentile-distribution text table and
// returns it gzipped and base64-encoded, mirroring the .hgrm output produced
// by HdrHistogram's own HistogramLogProcessor for human/plotter consumption.
func encodeHgrmGzip(h *hdrhistogram.Histogram) (string, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%15s %12s %12s %15s\n\n", "Value", "Percentile", "TotalCount", "1/(1-Percentile)")
	for _, bar := range h.CumulativeDistribution() {
		inverse := "inf"
		if bar.Quantile < 100 {
			inverse = fmt.Sprintf("%.2f", 1/(1-bar.Quantile/100))
		}
		fmt.Fprintf(&buf, "%15d %12.6f %12d %15s\n", bar.ValueAt, bar.Quantile/100, bar.Count, inverse)
	}
	fmt.Fprintf(&buf, "\n#[Mean    = %12.3f]\n", h.Mean())
	fmt.Fprintf(&buf, "#[Total count    = %12d]\n", h.TotalCount())

	return gzipBase64(buf.Bytes())
}

func gzipBase64(raw []byte) (string, error) {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	if _, err := gw.Write(raw); err != nil {
		return "", err
	}
	if err := gw.Close(); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
