package ocr

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	statuspb "google.golang.org/genproto/googleapis/rpc/status"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func symbol(text string, brk visionpb.TextAnnotation_DetectedBreak_BreakType) *visionpb.Symbol {
	s := &visionpb.Symbol{Text: text}
	if brk != visionpb.TextAnnotation_DetectedBreak_UNKNOWN {
		s.Property = &visionpb.TextAnnotation_TextProperty{
			DetectedBreak: &visionpb.TextAnnotation_DetectedBreak{Type: brk},
		}
	}
	return s
}

func TestAnnotationSegments(t *testing.T) {
	const none = visionpb.TextAnnotation_DetectedBreak_UNKNOWN
	block := &visionpb.Block{
		Confidence: 0.9,
		BoundingBox: &visionpb.BoundingPoly{Vertices: []*visionpb.Vertex{
			{X: 10, Y: 20}, {X: 110, Y: 20}, {X: 110, Y: 60}, {X: 10, Y: 60},
		}},
		Paragraphs: []*visionpb.Paragraph{{
			Words: []*visionpb.Word{
				{Symbols: []*visionpb.Symbol{
					symbol("I", none),
					symbol("D", visionpb.TextAnnotation_DetectedBreak_SPACE),
				}},
				{Symbols: []*visionpb.Symbol{
					symbol("1", none),
					symbol("2", visionpb.TextAnnotation_DetectedBreak_LINE_BREAK),
				}},
				{Symbols: []*visionpb.Symbol{
					symbol("ok", visionpb.TextAnnotation_DetectedBreak_EOL_SURE_SPACE),
				}},
			},
		}},
	}
	ann := &visionpb.TextAnnotation{Pages: []*visionpb.Page{{
		Blocks: []*visionpb.Block{block, {}},
	}}}

	segments := annotationSegments(ann)
	if len(segments) != 1 {
		t.Fatalf("got %d segments, want 1 (empty blocks are dropped)", len(segments))
	}
	seg := segments[0]
	if seg.Text != "ID 12\nok" {
		t.Errorf("Text = %q, want %q", seg.Text, "ID 12\nok")
	}
	if seg.Confidence == nil || *seg.Confidence != 0.9 {
		t.Errorf("Confidence = %v, want 0.9", seg.Confidence)
	}
	want := Box{X: 10, Y: 20, Width: 100, Height: 40}
	if seg.Bounds == nil || *seg.Bounds != want {
		t.Errorf("Bounds = %+v, want %+v", seg.Bounds, want)
	}
}

func TestAnnotationSegmentsNil(t *testing.T) {
	if got := annotationSegments(nil); len(got) != 0 {
		t.Errorf("annotationSegments(nil) = %v", got)
	}
}

func TestDocumentSegments(t *testing.T) {
	// Thai characters are multi-byte; anchors index characters.
	text := "ชื่อ นาย\nID 1234567890121\n"
	line := func(start, end int64, conf float32) *documentaipb.Document_Page_Line {
		return &documentaipb.Document_Page_Line{Layout: &documentaipb.Document_Page_Layout{
			Confidence: conf,
			TextAnchor: &documentaipb.Document_TextAnchor{
				TextSegments: []*documentaipb.Document_TextAnchor_TextSegment{{StartIndex: start, EndIndex: end}},
			},
		}}
	}
	doc := &documentaipb.Document{
		Text: text,
		Pages: []*documentaipb.Document_Page{{
			Lines: []*documentaipb.Document_Page_Line{line(0, 9, 0.8), line(9, 26, 0.95)},
		}},
	}

	segments := documentSegments(doc)
	if len(segments) != 2 {
		t.Fatalf("got %d segments, want 2", len(segments))
	}
	if segments[0].Text != "ชื่อ นาย" {
		t.Errorf("segments[0].Text = %q", segments[0].Text)
	}
	if segments[1].Text != "ID 1234567890121" {
		t.Errorf("segments[1].Text = %q", segments[1].Text)
	}
	if segments[1].Confidence == nil || *segments[1].Confidence != 0.95 {
		t.Errorf("segments[1].Confidence = %v", segments[1].Confidence)
	}
}

func TestDocumentSegmentsWithoutLayout(t *testing.T) {
	doc := &documentaipb.Document{Text: "first\n\n second \n"}
	segments := documentSegments(doc)
	if len(segments) != 2 || segments[0].Text != "first" || segments[1].Text != "second" {
		t.Errorf("documentSegments() = %+v", segments)
	}
	if segments[0].Confidence != nil {
		t.Error("fallback segments should carry no confidence")
	}
}

func TestAnchorTextIgnoresOutOfRange(t *testing.T) {
	anchor := &documentaipb.Document_TextAnchor{
		TextSegments: []*documentaipb.Document_TextAnchor_TextSegment{
			{StartIndex: 0, EndIndex: 2},
			{StartIndex: 5, EndIndex: 50},
		},
	}
	if got := anchorText([]rune("abcdef"), anchor); got != "ab" {
		t.Errorf("anchorText() = %q, want %q", got, "ab")
	}
}

func TestDocumentAIProcessorName(t *testing.T) {
	cfg := DocumentAIConfig{ProjectID: "p", Location: "eu", ProcessorID: "x"}
	if got, want := cfg.processorName(), "projects/p/locations/eu/processors/x"; got != want {
		t.Errorf("processorName() = %q, want %q", got, want)
	}
	cfg.ProcessorVersion = "v1"
	if got, want := cfg.processorName(), "projects/p/locations/eu/processors/x/processorVersions/v1"; got != want {
		t.Errorf("processorName() = %q, want %q", got, want)
	}
}

func TestWrapGoogleError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"rpc deadline", status.Error(codes.DeadlineExceeded, "deadline exceeded"), context.DeadlineExceeded},
		{"rpc canceled", status.Error(codes.Canceled, "context canceled"), context.Canceled},
		{"plain deadline", context.DeadlineExceeded, context.DeadlineExceeded},
		{"unauthenticated", status.Error(codes.Unauthenticated, "bad key"), ErrMissingCredentials},
		{"permission denied", status.Error(codes.PermissionDenied, "no access"), ErrMissingCredentials},
		{"invalid argument", status.Error(codes.InvalidArgument, "bad image"), ErrUnsupportedFormat},
		{"unavailable", status.Error(codes.Unavailable, "try later"), ErrOCRFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := wrapGoogleError("VisionRecognize", tt.err)
			if !errors.Is(err, tt.want) {
				t.Errorf("wrapGoogleError() = %v, want it to match %v", err, tt.want)
			}
			var ocrErr *OCRError
			if !errors.As(err, &ocrErr) || ocrErr.Op != "VisionRecognize" {
				t.Errorf("wrapGoogleError() = %v, want an OCRError for VisionRecognize", err)
			}
		})
	}
}

func TestFilePages(t *testing.T) {
	pages := func(n int) []*visionpb.AnnotateImageResponse {
		out := make([]*visionpb.AnnotateImageResponse, n)
		for i := range out {
			out[i] = &visionpb.AnnotateImageResponse{}
		}
		return out
	}

	tests := []struct {
		name    string
		resp    *visionpb.AnnotateFileResponse
		want    int
		wantErr error
	}{
		{"within limit", &visionpb.AnnotateFileResponse{TotalPages: 3, Responses: pages(3)}, 3, nil},
		{"at limit", &visionpb.AnnotateFileResponse{TotalPages: MaxPagesSync, Responses: pages(MaxPagesSync)}, MaxPagesSync, nil},
		{"truncated by the API", &visionpb.AnnotateFileResponse{TotalPages: 12, Responses: pages(MaxPagesSync)}, 0, ErrTooManyPages},
		{"no total reported", &visionpb.AnnotateFileResponse{Responses: pages(2)}, 2, nil},
		{"file error", &visionpb.AnnotateFileResponse{Error: &statuspb.Status{Message: "bad pdf"}}, 0, ErrOCRFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := filePages("annotateFile", tt.resp)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("filePages() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("filePages() error = %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("filePages() returned %d pages, want %d", len(got), tt.want)
			}
		})
	}
}
