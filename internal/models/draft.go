package models

// BookingDraft is the booking form for one seat. It lives only while the form is open.
type BookingDraft struct {
	SeatID            int64
	SeatIndex         int
	Start             string
	End               string
	Email             string
	AgreementAccepted bool
}

// DraftField names an editable field of a BookingDraft.
type DraftField string

const (
	DraftStart     DraftField = "start"
	DraftEnd       DraftField = "end"
	DraftEmail     DraftField = "email"
	DraftAgreement DraftField = "agreement"
)

// Request builds the API payload for the draft.
func (d BookingDraft) Request() CreateBookingRequest {
	return CreateBookingRequest{
		SeatID: d.SeatID,
		Start:  d.Start,
		End:    d.End,
		Email:  d.Email,
	}
}
