package tracing

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSpanTree(t *testing.T) {
	ctx, root := Start(context.Background(), "batch", "trace-1")
	if FromContext(ctx) != root {
		t.Fatal("root span not stored in context")
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, child := StartChild(ctx, "query")
			child.SetAttr("index", i)
			child.End()
		}()
	}
	wg.Wait()
	root.End()

	children := root.Children()
	if len(children) != 8 {
		t.Fatalf("got %d children, want 8", len(children))
	}
	for _, c := range children {
		if c.TraceID() != "trace-1" {
			t.Errorf("child trace id = %q", c.TraceID())
		}
		if _, ok := c.Attr("index"); !ok {
			t.Error("child missing index attribute")
		}
	}
}

func TestStartChildWithoutParent(t *testing.T) {
	_, span := StartChild(context.Background(), "orphan")
	if span.TraceID() != "" || span.Name() != "orphan" {
		t.Errorf("orphan span = %q/%q", span.Name(), span.TraceID())
	}
}

func TestEndIsIdempotent(t *testing.T) {
	_, span := Start(context.Background(), "s", "t")
	if span.Duration() != 0 {
		t.Error("unfinished span has a duration")
	}
	span.End()
	d := span.Duration()
	span.End()
	if span.Duration() != d {
		t.Error("second End changed the duration")
	}
}

func TestLog(t *testing.T) {
	ctx, root := Start(context.Background(), "batch", "t1")
	_, child := StartChild(ctx, "query")
	child.SetAttr("query", "milk")
	child.End()
	root.End()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	root.Log(ctx, logger, slog.LevelDebug)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var got []string
	for _, line := range lines {
		var rec map[string]any
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("bad log line %q: %v", line, err)
		}
		got = append(got, rec["span"].(string))
	}
	if diff := cmp.Diff(got, []string{"batch", "query"}); diff != "" {
		t.Errorf("logged spans mismatch (-got +want)\n%s", diff)
	}
	if !strings.Contains(lines[1], `"query":"milk"`) {
		t.Errorf("child attributes not logged: %s", lines[1])
	}

	buf.Reset()
	root.Log(ctx, slog.New(slog.NewJSONHandler(&buf, nil)), slog.LevelDebug)
	if buf.Len() != 0 {
		t.Errorf("disabled level still logged: %s", buf.String())
	}
}
