package extract

// terminationReason records why one source pipeline stopped paginating.
type terminationReason string

const (
	reasonNone         terminationReason = ""
	reasonExhausted    terminationReason = "exhausted"
	reasonLimitReached terminationReason = "limit-reached"
	reasonError        terminationReason = "error"
	reasonAborted      terminationReason = "aborted"
)

// paginationState is owned exclusively by one source pipeline. The page
// number starts at 1 and advances monotonically; it is never rolled back.
type paginationState struct {
	page    int
	crawled int
	reason  terminationReason
}

func newPaginationState() *paginationState {
	return &paginationState{page: 1}
}

// advance moves to the next page after a successful crawl.
func (p *paginationState) advance() {
	p.crawled++
	p.page++
}

// terminate sets the final reason once; later calls keep the first reason.
func (p *paginationState) terminate(reason terminationReason) {
	if p.reason == reasonNone {
		p.reason = reason
	}
}

func (p *paginationState) terminated() bool {
	return p.reason != reasonNone
}
