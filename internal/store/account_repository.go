package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/abdoElHodaky/mathematricks-pipeline/internal/domain"
)

// AccountRepository reads/mutates trading_accounts, including the embedded
// open_positions array.
type AccountRepository struct {
	col    *mongo.Collection
	logger *zap.Logger
}

func NewAccountRepository(s *Store) *AccountRepository {
	return &AccountRepository{col: s.Collection(CollAccounts), logger: s.Logger()}
}

// AllActive fetches every active account's id, for the execution
// snapshot loop's broker-balance poll (spec.md §4.5).
func (r *AccountRepository) AllActive(ctx context.Context) ([]string, error) {
	cur, err := r.col.Find(ctx, bson.M{"active": true}, options.Find().SetProjection(bson.M{"account_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var ids []string
	for cur.Next(ctx) {
		var row struct {
			AccountID string `bson:"account_id"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		ids = append(ids, row.AccountID)
	}
	return ids, cur.Err()
}

// ByID fetches a single account document.
func (r *AccountRepository) ByID(ctx context.Context, accountID string) (*domain.Account, error) {
	var a domain.Account
	err := r.col.FindOne(ctx, byID("account_id", accountID)).Decode(&a)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

// ByIDs fetches multiple accounts in one round trip.
func (r *AccountRepository) ByIDs(ctx context.Context, accountIDs []string) ([]domain.Account, error) {
	cur, err := r.col.Find(ctx, bson.M{"account_id": bson.M{"$in": accountIDs}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var accounts []domain.Account
	if err := cur.All(ctx, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

// ByFund fetches every account belonging to a fund, used to recompute
// fund.total_equity per spec.md §4.2(d).
func (r *AccountRepository) ByFund(ctx context.Context, fundID string) ([]domain.Account, error) {
	cur, err := r.col.Find(ctx, byID("fund_id", fundID))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var accounts []domain.Account
	if err := cur.All(ctx, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

// UpdateBalances replaces an account's balance snapshot, e.g. from the
// polling loop or a post-fill recompute.
func (r *AccountRepository) UpdateBalances(ctx context.Context, accountID string, b domain.Balances) error {
	_, err := r.col.UpdateOne(ctx, byID("account_id", accountID), bson.M{"$set": bson.M{"balances": b}})
	if err != nil {
		r.logger.Error("update balances failed", zap.String("account_id", accountID), zap.Error(err))
	}
	return err
}

// PushOpenPosition appends a position to the account's embedded
// open_positions array — a single-document atomic update, per spec.md §5's
// "no distributed lock is needed" guarantee.
func (r *AccountRepository) PushOpenPosition(ctx context.Context, accountID string, p domain.Position) error {
	_, err := r.col.UpdateOne(ctx, byID("account_id", accountID), bson.M{"$push": bson.M{"open_positions": p}})
	if err != nil {
		r.logger.Error("push open position failed", zap.String("account_id", accountID), zap.Error(err))
	}
	return err
}

// ReplaceOpenPosition overwrites one entry of open_positions matched by
// position_id, used by scale-in/scale-out.
func (r *AccountRepository) ReplaceOpenPosition(ctx context.Context, accountID string, p domain.Position) error {
	_, err := r.col.UpdateOne(ctx,
		bson.M{"account_id": accountID, "open_positions.position_id": p.PositionID},
		bson.M{"$set": bson.M{"open_positions.$": p}},
	)
	if err != nil {
		r.logger.Error("replace open position failed", zap.String("account_id", accountID), zap.Error(err))
	}
	return err
}

// PullOpenPosition removes a fully-closed position from the embedded array,
// per spec.md §4.4's full-close transition. Must be called only after the
// archive write (see position.Manager) succeeds.
func (r *AccountRepository) PullOpenPosition(ctx context.Context, accountID, positionID string) error {
	_, err := r.col.UpdateOne(ctx,
		byID("account_id", accountID),
		bson.M{"$pull": bson.M{"open_positions": bson.M{"position_id": positionID}}},
	)
	if err != nil {
		r.logger.Error("pull open position failed", zap.String("account_id", accountID), zap.Error(err))
	}
	return err
}

// FindOpenPosition retries up to 3 times with ~0.5s delay to tolerate the
// brief create-race spec.md §4.2(b) describes between Execution writing a
// fill and Cerebro reading position state for the next signal.
func (r *AccountRepository) FindOpenPosition(ctx context.Context, accountID, strategyID, instrument string, direction domain.Direction) (*domain.Position, error) {
	for attempt := 0; attempt < 4; attempt++ {
		acct, err := r.ByID(ctx, accountID)
		if err != nil {
			return nil, err
		}
		if acct != nil {
			for i := range acct.OpenPositions {
				p := acct.OpenPositions[i]
				if p.StrategyID == strategyID && p.Instrument == instrument && p.Direction == direction && p.Status == domain.PositionOpen {
					return &p, nil
				}
			}
		}
		if attempt < 3 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(500 * time.Millisecond):
			}
		}
	}
	return nil, nil
}
