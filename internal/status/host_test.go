package status

import "testing"

func TestReadHostInfo(t *testing.T) {
	info, err := ReadHostInfo()
	if info == nil {
		t.Fatal("expected non-nil info even on partial failure")
	}
	if err != nil {
		t.Skipf("host stats unavailable: %v", err)
	}
	if info.MemTotalMB <= 0 {
		t.Errorf("expected positive total memory, got %v", info.MemTotalMB)
	}
	if info.MemUsedMB > info.MemTotalMB {
		t.Errorf("used %v exceeds total %v", info.MemUsedMB, info.MemTotalMB)
	}
}
