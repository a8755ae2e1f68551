package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.dedis.ch/sealbid"
	"go.dedis.ch/sealbid/contracts/auction"
	"go.dedis.ch/sealbid/core/access"
	"go.dedis.ch/sealbid/serde/json"
	"golang.org/x/xerrors"
)

var format = json.NewContext()

// Ledger is the read part of the auction ledger served by the proxy.
type Ledger interface {
	GetAuction(id uint64) (auction.Auction, error)
	ListActive(now time.Time) ([]auction.Auction, error)
	AuctionsOf(p access.Principal) ([]uint64, error)
	HasBid(id uint64, p access.Principal) (bool, error)
}

// AuctionView is the public representation of an auction. The sealed values
// are never included and the winning amount only appears once the auction is
// settled.
type AuctionView struct {
	ID            uint64    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Category      string    `json:"category"`
	MinimumBid    uint64    `json:"minimumBid"`
	Creator       string    `json:"creator"`
	CreatedAt     time.Time `json:"createdAt"`
	EndsAt        time.Time `json:"endsAt"`
	State         string    `json:"state"`
	BidCount      uint64    `json:"bidCount"`
	Winner        string    `json:"winner,omitempty"`
	WinningAmount uint64    `json:"winningAmount,omitempty"`
}

// NewAuctionView returns the public view of the auction.
func NewAuctionView(a auction.Auction) AuctionView {
	view := AuctionView{
		ID:          a.ID,
		Title:       a.Title,
		Description: a.Description,
		Category:    a.Category,
		MinimumBid:  a.MinimumBid,
		Creator:     a.Creator.String(),
		CreatedAt:   a.CreatedAt,
		EndsAt:      a.EndsAt,
		State:       a.State.String(),
		BidCount:    a.BidCount,
	}

	if a.State == auction.StateEnded {
		view.Winner = a.Winner.String()
		view.WinningAmount = a.WinningAmount
	}

	return view
}

// HasBidView is the answer to the has-bid query.
type HasBidView struct {
	AuctionID uint64 `json:"auctionId"`
	Principal string `json:"principal"`
	HasBid    bool   `json:"hasBid"`
}

// AuctionsOfView is the answer to the auctions of a principal.
type AuctionsOfView struct {
	Principal string   `json:"principal"`
	Auctions  []uint64 `json:"auctions"`
}

type errorView struct {
	Error string `json:"error"`
}

// RegisterLedger registers the query handlers of the ledger:
//
//	GET /auctions
//	GET /auctions/{id}
//	GET /auctions/{id}/bids/{principal}
//	GET /principals/{principal}/auctions
func RegisterLedger(h *HTTP, l Ledger, clock func() time.Time) {
	q := queries{ledger: l, clock: clock}

	h.RegisterHandler("/auctions", q.active)
	h.RegisterHandler("/auctions/", q.auction)
	h.RegisterHandler("/principals/", q.principal)
}

// RegisterMetrics registers the collectors of the ledger to a new registry
// and serves it on the path.
func RegisterMetrics(h *HTTP, path string) error {
	registry := prometheus.NewRegistry()

	for _, c := range sealbid.PromCollectors {
		err := registry.Register(c)
		if err != nil {
			return xerrors.Errorf("failed to register: %v", err)
		}
	}

	h.RegisterHandler(path, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}).ServeHTTP)

	return nil
}

type queries struct {
	ledger Ledger
	clock  func() time.Time
}

func (q queries) active(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}

	list, err := q.ledger.ListActive(q.clock())
	if err != nil {
		writeError(w, err)
		return
	}

	views := make([]AuctionView, len(list))
	for i, a := range list {
		views[i] = NewAuctionView(a)
	}

	writeJSON(w, http.StatusOK, views)
}

// auction serves /auctions/{id} and /auctions/{id}/bids/{principal}.
func (q queries) auction(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}

	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/auctions/"), "/")

	id, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		writeError(w, xerrors.Errorf("invalid auction id '%s': %w", parts[0], auction.ErrValidation))
		return
	}

	switch {
	case len(parts) == 1:
		a, err := q.ledger.GetAuction(id)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, NewAuctionView(a))
	case len(parts) == 3 && parts[1] == "bids" && parts[2] != "":
		p := access.Principal(parts[2])

		found, err := q.ledger.HasBid(id, p)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, HasBidView{AuctionID: id, Principal: p.String(), HasBid: found})
	default:
		http.NotFound(w, r)
	}
}

// principal serves /principals/{principal}/auctions.
func (q queries) principal(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}

	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/principals/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "auctions" {
		http.NotFound(w, r)
		return
	}

	ids, err := q.ledger.AuctionsOf(access.Principal(parts[0]))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, AuctionsOfView{Principal: parts[0], Auctions: ids})
}

func allowGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method == http.MethodGet {
		return true
	}

	w.Header().Set("Allow", http.MethodGet)
	writeJSON(w, http.StatusMethodNotAllowed, errorView{Error: "only GET is allowed"})

	return false
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch {
	case xerrors.Is(err, auction.ErrNotFound):
		status = http.StatusNotFound
	case xerrors.Is(err, auction.ErrValidation):
		status = http.StatusBadRequest
	}

	writeJSON(w, status, errorView{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := format.Marshal(v)
	if err != nil {
		sealbid.Logger.Warn().Err(err).Msg("failed to encode response")

		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_, err = w.Write(append(data, '\n'))
	if err != nil {
		sealbid.Logger.Warn().Err(err).Msg("failed to write response")
	}
}
