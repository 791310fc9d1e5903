package extractor

import (
	"math"
	"testing"
	"time"

	"go-fenghuotai/pkg/models"
)

var base = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func entry(addr string, ts time.Time, path string, status int, bytes int64, ua string) models.LogEntry {
	return models.LogEntry{
		SourceAddress:    addr,
		Timestamp:        ts,
		RequestPath:      path,
		StatusCode:       status,
		BytesTransferred: bytes,
		UserAgent:        ua,
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestExtractFeaturesBasic(t *testing.T) {
	entries := []models.LogEntry{
		entry("192.168.1.10", base.Add(2*time.Minute), "/a", 404, 300, "ua-1"),
		entry("192.168.1.10", base, "/a", 200, 100, "ua-1"),
		entry("192.168.1.10", base.Add(1*time.Minute), "/b", 200, 200, "ua-1"),
	}

	features, skipped := ExtractFeatures(entries, []int{1, 5})
	if skipped != 0 {
		t.Fatalf("expected 0 skipped, got %d", skipped)
	}
	if len(features) != 1 {
		t.Fatalf("expected 1 feature vector, got %d", len(features))
	}

	fv := features[0]
	if fv.RequestCount != 3 {
		t.Errorf("request_count: expected 3, got %d", fv.RequestCount)
	}
	// 乱序输入也按时间升序计算间隔
	if !almostEqual(fv.AvgInterArrivalSeconds, 60) {
		t.Errorf("avg_inter_arrival: expected 60, got %v", fv.AvgInterArrivalSeconds)
	}
	if !almostEqual(fv.StdInterArrivalSeconds, 0) {
		t.Errorf("stddev_inter_arrival: expected 0, got %v", fv.StdInterArrivalSeconds)
	}
	if !almostEqual(fv.UniquePathRatio, 2.0/3.0) {
		t.Errorf("unique_path_ratio: expected 2/3, got %v", fv.UniquePathRatio)
	}
	if !almostEqual(fv.SuccessRatio, 2.0/3.0) || !almostEqual(fv.ErrorRatio, 1.0/3.0) {
		t.Errorf("ratios: got success=%v error=%v", fv.SuccessRatio, fv.ErrorRatio)
	}
	if !almostEqual(fv.SuccessRatio+fv.ErrorRatio, 1) {
		t.Errorf("success+error should be 1, got %v", fv.SuccessRatio+fv.ErrorRatio)
	}
	if !almostEqual(fv.MeanBytesTransferred, 200) {
		t.Errorf("mean_bytes: expected 200, got %v", fv.MeanBytesTransferred)
	}
	if fv.DistinctUserAgentCount != 1 {
		t.Errorf("distinct_user_agent_count: expected 1, got %d", fv.DistinctUserAgentCount)
	}

	// 窗口左端开放：恰好相隔60s的请求不落入1分钟窗口
	if got := fv.WindowedRequestCounts[1]; got != 1 {
		t.Errorf("1m window: expected 1, got %d", got)
	}
	if got := fv.WindowedRequestCounts[5]; got != 3 {
		t.Errorf("5m window: expected 3, got %d", got)
	}
}

func TestExtractFeaturesEmpty(t *testing.T) {
	features, skipped := ExtractFeatures(nil, []int{1, 5})
	if len(features) != 0 || skipped != 0 {
		t.Fatalf("expected empty result, got %d features, %d skipped", len(features), skipped)
	}
}

func TestExtractFeaturesSkipsInvalid(t *testing.T) {
	entries := []models.LogEntry{
		entry("1.1.1.1", base, "/a", 200, 100, "ua"),
		entry("1.1.1.1", base.Add(time.Second), "/b", 200, 100, "ua"),
		entry("", base, "/a", 200, 100, "ua"),               // 缺源地址
		entry("1.1.1.1", time.Time{}, "/a", 200, 100, "ua"), // 缺时间戳
		entry("1.1.1.1", base, "/a", -1, 100, "ua"),         // 状态码非法
		entry("1.1.1.1", base, "/a", 200, -5, "ua"),         // 字节数非法
	}

	features, skipped := ExtractFeatures(entries, []int{1})
	if skipped != 4 {
		t.Fatalf("expected 4 skipped, got %d", skipped)
	}
	if len(features) != 1 || features[0].RequestCount != 2 {
		t.Fatalf("expected one vector with 2 requests, got %+v", features)
	}
}

func TestExtractFeaturesMultipleAddresses(t *testing.T) {
	entries := []models.LogEntry{
		entry("2.2.2.2", base, "/a", 200, 10, "ua"),
		entry("1.1.1.1", base, "/a", 200, 10, "ua"),
		entry("2.2.2.2", base.Add(time.Second), "/a", 200, 10, "ua"),
	}

	features, _ := ExtractFeatures(entries, []int{1})
	if len(features) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(features))
	}
	// 输出按地址升序
	if features[0].SourceAddress != "1.1.1.1" || features[1].SourceAddress != "2.2.2.2" {
		t.Fatalf("unexpected order: %s, %s", features[0].SourceAddress, features[1].SourceAddress)
	}
	if features[0].RequestCount != 1 || features[1].RequestCount != 2 {
		t.Fatalf("unexpected counts: %d, %d", features[0].RequestCount, features[1].RequestCount)
	}
}

func TestSingleEntryDefaults(t *testing.T) {
	features, _ := ExtractFeatures([]models.LogEntry{
		entry("1.1.1.1", base, "/a", 200, 10, "ua"),
	}, []int{1, 5})

	fv := features[0]
	if fv.AvgInterArrivalSeconds != 0 || fv.StdInterArrivalSeconds != 0 {
		t.Errorf("single entry should default inter-arrival stats to 0, got %v/%v",
			fv.AvgInterArrivalSeconds, fv.StdInterArrivalSeconds)
	}
	if fv.WindowedRequestCounts[1] != 1 {
		t.Errorf("single entry 1m window: expected 1, got %d", fv.WindowedRequestCounts[1])
	}
}

func TestWindowCountsNonDecreasing(t *testing.T) {
	offsets := []time.Duration{0, 10 * time.Second, 40 * time.Second, 3 * time.Minute,
		4 * time.Minute, 12 * time.Minute, 25 * time.Minute, 59 * time.Minute}
	var entries []models.LogEntry
	for _, off := range offsets {
		entries = append(entries, entry("1.1.1.1", base.Add(off), "/a", 200, 10, "ua"))
	}

	windows := []int{1, 5, 15, 30, 60}
	features, _ := ExtractFeatures(entries, windows)
	fv := features[0]
	for i := 1; i < len(windows); i++ {
		prev, cur := fv.WindowedRequestCounts[windows[i-1]], fv.WindowedRequestCounts[windows[i]]
		if cur < prev {
			t.Errorf("window counts must be non-decreasing: %dm=%d > %dm=%d",
				windows[i-1], prev, windows[i], cur)
		}
	}
	if fv.WindowedRequestCounts[60] != len(offsets) {
		t.Errorf("60m window should cover all requests, got %d", fv.WindowedRequestCounts[60])
	}
}
