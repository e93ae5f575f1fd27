package model

import "github.com/jacentio/folio/store"

// Status values shared by the publishing entities.
const (
	StatusWithdrawn int8 = -1
	StatusDraft     int8 = 0
	StatusReview    int8 = 1
	StatusApproved  int8 = 2
)

// ContentStatus is the transition table of Content.
var ContentStatus = store.Transitions{
	StatusWithdrawn: {StatusDraft},
	StatusDraft:     {StatusWithdrawn},
}

// PublishStatus is the transition table of Collection, Creation,
// PublicationDraft and Publication. Approved is terminal.
var PublishStatus = store.Transitions{
	StatusWithdrawn: {StatusDraft},
	StatusDraft:     {StatusWithdrawn, StatusReview},
	StatusReview:    {StatusWithdrawn, StatusDraft, StatusApproved},
	StatusApproved:  {},
}
