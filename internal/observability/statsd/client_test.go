package statsd

import (
	"net"
	"testing"
)

func TestNormalizeMetricName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		" page/processed ": "page_processed",
		"job..duration":    "job.duration",
		".queue.depth.":    "queue.depth",
		"":                 "",
	}

	for input, want := range tests {
		if got := normalizeMetricName(input); got != want {
			t.Fatalf("normalizeMetricName(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestFormatTags(t *testing.T) {
	t.Parallel()

	global := map[string]string{
		"host": "worker-1",
		"env":  "prod",
	}
	local := map[string]string{
		"result": " success ",
		"":       "ignored",
		"env":    "stage",
	}

	got := formatTags(global, local)
	want := "|#env:stage,host:worker-1,result:success"

	if got != want {
		t.Fatalf("formatTags mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestFormatTagsEmpty(t *testing.T) {
	t.Parallel()

	if got := formatTags(nil, nil); got != "" {
		t.Fatalf("formatTags(nil, nil) = %q, want empty string", got)
	}
}

func TestMetricNamePrefix(t *testing.T) {
	t.Parallel()

	c := &Client{prefix: "ocrworker"}
	if got := c.metricName("job.transition"); got != "ocrworker.job.transition" {
		t.Fatalf("metricName = %q", got)
	}
	if got := c.metricName(""); got != "" {
		t.Fatalf("metricName empty = %q", got)
	}
}

func TestClientEnabledAndClose(t *testing.T) {
	t.Parallel()

	clientConn, peerConn := net.Pipe()
	defer peerConn.Close()

	client := &Client{
		enabled: true,
		conn:    clientConn,
	}

	if !client.Enabled() {
		t.Fatal("expected client.Enabled to report true with active connection")
	}

	if err := client.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	if client.Enabled() {
		t.Fatal("expected client.Enabled to report false after Close")
	}

	if err := client.Close(); err != nil {
		t.Fatalf("second Close error: %v", err)
	}
}

func TestDisabledClientNoops(t *testing.T) {
	t.Parallel()

	client, err := NewClient(Config{Enabled: false})
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	if client.Enabled() {
		t.Fatal("expected disabled client")
	}

	// Writes on a disabled client must not panic.
	client.Count("job.transition", 1, nil)
	client.Gauge("queue.depth", 3, nil)
}
