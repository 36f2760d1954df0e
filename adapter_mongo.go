package orderlens

import (
	"context"
	"fmt"
	"regexp"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore keeps one document per order with its course embedded, so
// related fields are plain dotted paths.
//
// MongoDB gives no snapshot across the count and page queries of a Result
// without a replica set session; a concurrent writer may be observed between them.
type MongoStore struct {
	orders *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{orders: db.Collection("orders")}
}

// EnsureIndexes creates the id index used for ordering.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.orders.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	})
	return errors.Wrap(err, "create order indexes")
}

func (s *MongoStore) Insert(ctx context.Context, courses []Course, orders []Order) error {
	byID := make(map[uint]Course, len(courses))
	for _, c := range courses {
		byID[c.ID] = c
	}
	if len(orders) == 0 {
		return nil
	}
	docs := make([]any, 0, len(orders))
	for _, o := range orders {
		o = o.InUTC()
		if c, ok := byID[o.CourseID]; ok {
			c := c
			o.Course = &c
		}
		docs = append(docs, o)
	}
	_, err := s.orders.InsertMany(ctx, docs)
	return errors.Wrap(err, "insert orders")
}

func (s *MongoStore) Query(_ context.Context, predicate Expr) (Result, error) {
	filter, err := BuildMongoFilter(predicate)
	if err != nil {
		return nil, err
	}
	return &mongoResult{orders: s.orders, filter: filter}, nil
}

type mongoResult struct {
	orders *mongo.Collection
	filter bson.M
}

func (r *mongoResult) Count(ctx context.Context) (int64, error) {
	n, err := r.orders.CountDocuments(ctx, r.filter)
	return n, errors.Wrap(err, "count orders")
}

func (r *mongoResult) Page(ctx context.Context, number, size int) ([]Order, error) {
	if number < 1 || size < 1 {
		return nil, nil
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "id", Value: 1}}).
		SetSkip(int64((number - 1) * size)).
		SetLimit(int64(size))
	return r.find(ctx, opts)
}

func (r *mongoResult) All(ctx context.Context) ([]Order, error) {
	return r.find(ctx, options.Find().SetSort(bson.D{{Key: "id", Value: 1}}))
}

func (r *mongoResult) find(ctx context.Context, opts *options.FindOptions) ([]Order, error) {
	cur, err := r.orders.Find(ctx, r.filter, opts)
	if err != nil {
		return nil, errors.Wrap(err, "find orders")
	}
	out := make([]Order, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, errors.Wrap(err, "decode orders")
	}
	return out, nil
}

func (*mongoResult) Close() error { return nil }

// BuildMongoFilter converts a predicate into a MongoDB filter document.
func BuildMongoFilter(e Expr) (bson.M, error) {
	if isMatchAll(e) {
		return bson.M{}, nil
	}
	return mongoExpr(e)
}

func mongoExpr(e Expr) (bson.M, error) {
	switch x := e.(type) {
	case MatchAll:
		return bson.M{}, nil
	case EqExpr:
		return bson.M{x.Field.Path(): x.Value}, nil
	case GtExpr:
		return bson.M{x.Field.Path(): bson.M{"$gt": x.Value}}, nil
	case GteExpr:
		return bson.M{x.Field.Path(): bson.M{"$gte": x.Value}}, nil
	case LtExpr:
		return bson.M{x.Field.Path(): bson.M{"$lt": x.Value}}, nil
	case LteExpr:
		return bson.M{x.Field.Path(): bson.M{"$lte": x.Value}}, nil
	case BetweenExpr:
		return bson.M{x.Field.Path(): bson.M{"$gte": x.Low, "$lte": x.High}}, nil
	case InExpr:
		return bson.M{x.Field.Path(): bson.M{"$in": x.Values}}, nil
	case LikeExpr:
		return bson.M{x.Field.Path(): bson.M{"$regex": likeToRegex(x.Value, x.Mode)}}, nil
	case NotNullExpr:
		return bson.M{x.Field.Path(): bson.M{"$ne": nil}}, nil
	case NotExpr:
		inner, err := mongoExpr(x.Operand)
		if err != nil {
			return nil, err
		}
		return bson.M{"$nor": bson.A{inner}}, nil
	case AndExpr:
		parts, err := mongoExprs(x.Operands)
		if err != nil {
			return nil, err
		}
		return bson.M{"$and": parts}, nil
	case OrExpr:
		parts, err := mongoExprs(x.Operands)
		if err != nil {
			return nil, err
		}
		return bson.M{"$or": parts}, nil
	default:
		return nil, fmt.Errorf("mongo adapter: unsupported expression %T", e)
	}
}

func mongoExprs(operands []Expr) (bson.A, error) {
	parts := make(bson.A, 0, len(operands))
	for _, op := range operands {
		if op == nil {
			continue
		}
		m, err := mongoExpr(op)
		if err != nil {
			return nil, err
		}
		parts = append(parts, m)
	}
	return parts, nil
}

func likeToRegex(v string, mode MatchMode) primitive.Regex {
	pattern := regexp.QuoteMeta(v)
	switch mode {
	case MatchPrefix:
		pattern = "^" + pattern
	case MatchSuffix:
		pattern = pattern + "$"
	}
	return primitive.Regex{Pattern: pattern}
}
