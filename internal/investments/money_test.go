package investments

import "testing"

func TestFeeAdjustedAmount(t *testing.T) {
	tests := []struct {
		amount int64
		feeBps int64
		want   int64
	}{
		{10000, 200, 9800},
		{100, 200, 98},
		{1, 200, 0},
		{227, 200, 222},  // floor of 222.46
		{9999, 200, 9799}, // floor of 9799.02
		{10000, 0, 10000},
	}

	for _, tt := range tests {
		got := FeeAdjustedAmount(tt.amount, tt.feeBps)
		if got != tt.want {
			t.Errorf("FeeAdjustedAmount(%d, %d) = %d, want %d", tt.amount, tt.feeBps, got, tt.want)
		}
		if got > tt.amount {
			t.Errorf("FeeAdjustedAmount(%d, %d) = %d exceeds the original amount", tt.amount, tt.feeBps, got)
		}
	}
}

func TestComputeExecution(t *testing.T) {
	tests := []struct {
		feeAdjusted  int64
		sharePrice   int64
		wantQuantity int64
		wantAmount   int64
	}{
		{9800, 227, 43, 9761},
		{98, 227, 0, 0},
		{227, 227, 1, 227},
		{226, 227, 0, 0},
		{454, 227, 2, 454},
	}

	for _, tt := range tests {
		quantity, amount := ComputeExecution(tt.feeAdjusted, tt.sharePrice)
		if quantity != tt.wantQuantity || amount != tt.wantAmount {
			t.Errorf("ComputeExecution(%d, %d) = (%d, %d), want (%d, %d)",
				tt.feeAdjusted, tt.sharePrice, quantity, amount, tt.wantQuantity, tt.wantAmount)
		}
		if amount > tt.feeAdjusted {
			t.Errorf("ComputeExecution(%d, %d) executed %d, more than the investable amount",
				tt.feeAdjusted, tt.sharePrice, amount)
		}
	}
}
