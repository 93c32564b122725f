package importer

import "testing"

func TestCalculateBatches(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		total     int
		size      int
		wantCount int
		wantFirst Batch
		wantLast  Batch
	}{
		{"even_split", 50000, 1000, 50, Batch{0, 1000}, Batch{49000, 1000}},
		{"partial_tail", 2500, 1000, 3, Batch{0, 1000}, Batch{2000, 500}},
		{"single_partial", 7, 1000, 1, Batch{0, 7}, Batch{0, 7}},
		{"exact_one", 1000, 1000, 1, Batch{0, 1000}, Batch{0, 1000}},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			batches := CalculateBatches(tc.total, tc.size)
			if len(batches) != tc.wantCount {
				t.Fatalf("len = %d, want %d", len(batches), tc.wantCount)
			}
			if batches[0] != tc.wantFirst {
				t.Errorf("first = %+v, want %+v", batches[0], tc.wantFirst)
			}
			if batches[len(batches)-1] != tc.wantLast {
				t.Errorf("last = %+v, want %+v", batches[len(batches)-1], tc.wantLast)
			}

			covered := 0
			for i, b := range batches {
				if b.Offset != covered {
					t.Errorf("batch %d offset = %d, want %d (contiguous)", i, b.Offset, covered)
				}
				covered += b.Limit
			}
			if covered != tc.total {
				t.Errorf("batches cover %d rows, want %d", covered, tc.total)
			}
		})
	}
}

func TestCalculateBatches_Degenerate(t *testing.T) {
	t.Parallel()

	if got := CalculateBatches(0, 1000); got != nil {
		t.Errorf("zero rows should yield no batches, got %v", got)
	}
	if got := CalculateBatches(-5, 1000); got != nil {
		t.Errorf("negative rows should yield no batches, got %v", got)
	}
	if got := CalculateBatches(10, 0); len(got) != 1 || got[0].Limit != 10 {
		t.Errorf("zero batch size should fall back to default, got %v", got)
	}
}
