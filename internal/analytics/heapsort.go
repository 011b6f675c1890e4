package analytics

// heapSortPointers is a direct generalization of
// _examples/original_source/HeapSort.h's HeapSortPointers class: an in-place
// heap sort over an array of pointers, driven by a caller-supplied compare
// function instead of virtual dispatch. Used by TopBalances (component J)
// to rank addresses by balance without allocating a second sorted copy.
func heapSortPointers(arr []*addressBalance, less func(a, b *addressBalance) bool) {
	n := len(arr)
	if n < 2 {
		return
	}
	heapify(arr, less)
	high := n - 1
	for high > 0 {
		arr[0], arr[high] = arr[high], arr[0]
		high--
		shiftRight(arr, 0, high, less)
	}
}

func heapify(arr []*addressBalance, less func(a, b *addressBalance) bool) {
	high := len(arr) - 1
	mid := (high - 1) / 2
	for mid >= 0 {
		shiftRight(arr, mid, high, less)
		mid--
	}
}

// shiftRight sifts the element at root down into [low,high] so the max
// element (per less) bubbles to the root — "less" orders ascending, so the
// larger of two compared elements wins the swap, matching HeapSort.h's
// compare()<0 convention for a max-heap.
func shiftRight(arr []*addressBalance, low, high int, less func(a, b *addressBalance) bool) {
	root := low
	for root*2+1 <= high {
		left := root*2 + 1
		right := left + 1
		swapIdx := root
		if less(arr[swapIdx], arr[left]) {
			swapIdx = left
		}
		if right <= high && less(arr[swapIdx], arr[right]) {
			swapIdx = right
		}
		if swapIdx == root {
			return
		}
		arr[root], arr[swapIdx] = arr[swapIdx], arr[root]
		root = swapIdx
	}
}
