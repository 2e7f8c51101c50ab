package pagination

import (
	"strconv"
	"testing"
)

func TestPageRequest(t *testing.T) {
	req := PageRequest{}
	req.Defaults()
	if req.Page != 1 || req.PageSize != 20 {
		t.Fatalf("unexpected defaults: %+v", req)
	}

	req = PageRequest{Page: 3, PageSize: 10}
	if req.Offset() != 20 {
		t.Errorf("expected offset 20, got %d", req.Offset())
	}
}

func TestNewPageResponse(t *testing.T) {
	page := NewPageResponse[int](nil, 1, 20, 41)
	if page.TotalPages != 3 {
		t.Errorf("expected 3 pages, got %d", page.TotalPages)
	}
	if page.Data == nil {
		t.Error("expected empty slice, got nil")
	}
}

func TestMap(t *testing.T) {
	page := NewPageResponse([]int{1, 2}, 2, 2, 4)
	mapped := Map(page, strconv.Itoa)

	if len(mapped.Data) != 2 || mapped.Data[1] != "2" {
		t.Errorf("unexpected data: %v", mapped.Data)
	}
	if mapped.Page != 2 || mapped.TotalItems != 4 || mapped.TotalPages != 2 {
		t.Errorf("metadata not preserved: %+v", mapped)
	}
}
