package investments

// All order math is integer arithmetic on minor currency units. Division
// truncates toward zero, which for the non-negative amounts here is floor.

// FeeAdjustedAmount returns the investable amount after the platform fee,
// with the fee expressed in basis points (200 = 2%).
func FeeAdjustedAmount(amount, feeBps int64) int64 {
	return amount * (10000 - feeBps) / 10000
}

// ComputeExecution converts an investable amount into whole shares at the
// given share price. The remainder below one share's price is not invested
// and not refunded.
func ComputeExecution(feeAdjustedAmount, sharePrice int64) (quantity, executedAmount int64) {
	quantity = feeAdjustedAmount / sharePrice
	return quantity, quantity * sharePrice
}
