// Package auction implements the confidential auction ledger as a native
// contract.
//
// Principals open auctions with a public minimum bid and bid sealed amounts
// that only the bidder and the contract can reveal. The ledger keeps the
// sealed maximum of the bids and the sealed position of the leading bid up to
// date with an oblivious comparison, so that nobody learns which bid leads
// before the settlement. The settlement discloses the winning amount to the
// creator, records the winner, pays the creator from the escrow, and refunds
// the other bidders.
package auction

import (
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"go.dedis.ch/sealbid"
	"go.dedis.ch/sealbid/contracts/auction/escrow"
	"go.dedis.ch/sealbid/contracts/auction/notify"
	"go.dedis.ch/sealbid/core/access"
	"go.dedis.ch/sealbid/core/execution"
	"go.dedis.ch/sealbid/core/execution/native"
	"go.dedis.ch/sealbid/core/seal"
	"go.dedis.ch/sealbid/core/store"
	"golang.org/x/xerrors"
)

// commands defines the commands of the auction contract. This interface helps
// in testing the contract.
type commands interface {
	create(tx store.WritableTx, step execution.Step) error
	bid(tx store.WritableTx, step execution.Step) error
	end(tx store.WritableTx, step execution.Step) error
}

const (
	// ContractName is the name of the contract.
	ContractName = "go.dedis.ch/sealbid.Auction"

	// CmdArg is the argument's name to indicate the kind of command we want to
	// run on the contract. Should be one of the Command type.
	CmdArg = "auction:command"

	// TitleArg is the argument's name of the title of a new auction.
	TitleArg = "auction:title"

	// DescriptionArg is the argument's name of the description of a new
	// auction.
	DescriptionArg = "auction:description"

	// CategoryArg is the argument's name of the category of a new auction.
	CategoryArg = "auction:category"

	// MinimumArg is the argument's name of the minimum bid of a new auction,
	// in decimal.
	MinimumArg = "auction:minimum"

	// IDArg is the argument's name of the auction identifier, in decimal.
	IDArg = "auction:id"

	// AmountArg is the argument's name of the amount of a bid, in decimal.
	AmountArg = "auction:amount"

	// PaymentArg is the argument's name of the payment escrowed with a bid,
	// in decimal.
	PaymentArg = "auction:payment"

	// ClaimArg is the argument's name of the claim of a bid. It is optional
	// and defaults to false.
	ClaimArg = "auction:claim"

	// CommentArg is the argument's name of the comment of a bid.
	CommentArg = "auction:comment"

	contractUID = "AUCT"
)

// Command defines a type of command for the auction contract.
type Command string

const (
	// CmdCreate defines the command to open an auction.
	CmdCreate Command = "CREATE"

	// CmdBid defines the command to bid on an auction.
	CmdBid Command = "BID"

	// CmdEnd defines the command to end and settle an auction.
	CmdEnd Command = "END"
)

// RegisterContract registers the auction contract to the given execution
// service.
func RegisterContract(exec *native.Service, c Contract) {
	exec.Set(ContractName, c)
}

type template struct {
	config    Config
	escrow    Escrow
	publisher notify.Publisher
	logger    zerolog.Logger
	clock     func() time.Time
}

// Option is the type of options to create the contract or the ledger.
type Option func(*template)

// WithConfig sets the configuration.
func WithConfig(cfg Config) Option {
	return func(tmpl *template) {
		tmpl.config = cfg
	}
}

// WithEscrow sets the escrow that holds the payments. A nil escrow disables
// the payments.
func WithEscrow(e Escrow) Option {
	return func(tmpl *template) {
		tmpl.escrow = e
	}
}

// WithPublisher sets the publisher of the notifications.
func WithPublisher(p notify.Publisher) Option {
	return func(tmpl *template) {
		tmpl.publisher = p
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(tmpl *template) {
		tmpl.logger = logger
	}
}

// WithClock sets the clock used to date the transactions.
func WithClock(clock func() time.Time) Option {
	return func(tmpl *template) {
		tmpl.clock = clock
	}
}

func newTemplate(opts []Option) (template, error) {
	tmpl := template{
		config:    DefaultConfig(),
		escrow:    escrow.NewVault(),
		publisher: notify.NewLog(sealbid.Logger),
		logger:    sealbid.Logger,
		clock:     time.Now,
	}

	for _, opt := range opts {
		opt(&tmpl)
	}

	err := tmpl.config.Validate()
	if err != nil {
		return tmpl, xerrors.Errorf("invalid config: %w", err)
	}

	return tmpl, nil
}

// Contract is the native contract of the auction ledger. The identity of the
// transaction is the principal of the operation.
//
// - implements native.Contract
type Contract struct {
	engine engine
	clock  func() time.Time
	cmd    commands
}

// NewContract creates a new contract using the oracle for the sealed values.
// The oracle must implicitly grant the identity of the contract set in the
// configuration.
func NewContract(oracle seal.Oracle, opts ...Option) (Contract, error) {
	tmpl, err := newTemplate(opts)
	if err != nil {
		return Contract{}, err
	}

	return newContract(newEngine(oracle, tmpl), tmpl.clock), nil
}

func newContract(e engine, clock func() time.Time) Contract {
	contract := Contract{
		engine: e,
		clock:  clock,
	}

	contract.cmd = auctionCommand{Contract: &contract}

	return contract
}

// UID implements native.Contract.
func (c Contract) UID() string {
	return contractUID
}

// Execute implements native.Contract. It runs the appropriate command.
func (c Contract) Execute(tx store.WritableTx, step execution.Step) error {
	cmd := step.Current.GetArg(CmdArg)
	if len(cmd) == 0 {
		return xerrors.Errorf("'%s' not found in tx arg", CmdArg)
	}

	switch Command(cmd) {
	case CmdCreate:
		err := c.cmd.create(tx, step)
		if err != nil {
			return xerrors.Errorf("failed to CREATE: %w", err)
		}
	case CmdBid:
		err := c.cmd.bid(tx, step)
		if err != nil {
			return xerrors.Errorf("failed to BID: %w", err)
		}
	case CmdEnd:
		err := c.cmd.end(tx, step)
		if err != nil {
			return xerrors.Errorf("failed to END: %w", err)
		}
	default:
		return xerrors.Errorf("unknown command: %s", cmd)
	}

	return nil
}

// auctionCommand implements the commands of the auction contract
//
// - implements commands
type auctionCommand struct {
	*Contract
}

// create implements commands. It performs the CREATE command.
func (c auctionCommand) create(tx store.WritableTx, step execution.Step) error {
	creator, err := principalOf(step)
	if err != nil {
		return err
	}

	minimum, err := uintArg(step, MinimumArg)
	if err != nil {
		return err
	}

	req := CreateRequest{
		Title:       string(step.Current.GetArg(TitleArg)),
		Description: string(step.Current.GetArg(DescriptionArg)),
		Category:    string(step.Current.GetArg(CategoryArg)),
		MinimumBid:  minimum,
	}

	_, err = c.engine.create(tx, req, creator, c.clock())

	return observe(err)
}

// bid implements commands. It performs the BID command.
func (c auctionCommand) bid(tx store.WritableTx, step execution.Step) error {
	bidder, err := principalOf(step)
	if err != nil {
		return err
	}

	req := BidRequest{
		Comment: string(step.Current.GetArg(CommentArg)),
	}

	req.AuctionID, err = uintArg(step, IDArg)
	if err != nil {
		return err
	}

	req.Amount, err = uintArg(step, AmountArg)
	if err != nil {
		return err
	}

	req.Payment, err = uintArg(step, PaymentArg)
	if err != nil {
		return err
	}

	claim := step.Current.GetArg(ClaimArg)
	if len(claim) > 0 {
		req.ClaimedHigh, err = strconv.ParseBool(string(claim))
		if err != nil {
			return xerrors.Errorf("'%s' is not a boolean: %w", ClaimArg, ErrValidation)
		}
	}

	return observe(c.engine.placeBid(tx, req, bidder, c.clock()))
}

// end implements commands. It performs the END command.
func (c auctionCommand) end(tx store.WritableTx, step execution.Step) error {
	caller, err := principalOf(step)
	if err != nil {
		return err
	}

	id, err := uintArg(step, IDArg)
	if err != nil {
		return err
	}

	_, err = c.engine.end(tx, id, caller, c.clock())

	return observe(err)
}

func principalOf(step execution.Step) (access.Principal, error) {
	ident := step.Current.GetIdentity()
	if ident == nil {
		return "", xerrors.Errorf("transaction has no identity: %w", ErrValidation)
	}

	text, err := ident.MarshalText()
	if err != nil {
		return "", xerrors.Errorf("failed to marshal identity: %v", err)
	}

	return access.Principal(text), nil
}

func uintArg(step execution.Step, key string) (uint64, error) {
	value := step.Current.GetArg(key)
	if len(value) == 0 {
		return 0, xerrors.Errorf("'%s' not found in tx arg: %w", key, ErrValidation)
	}

	n, err := strconv.ParseUint(string(value), 10, 64)
	if err != nil {
		return 0, xerrors.Errorf("'%s' is not a number: %w", key, ErrValidation)
	}

	return n, nil
}
