package orderlens

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore queries orders through gorm. Related fields are matched with a
// subquery on the related table, so no join is needed for filtering.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Migrate creates the order and course tables.
func (s *GormStore) Migrate(ctx context.Context) error {
	return errors.Wrap(s.db.WithContext(ctx).AutoMigrate(&Course{}, &Order{}), "migrate order tables")
}

func (s *GormStore) Insert(ctx context.Context, courses []Course, orders []Order) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(courses) > 0 {
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&courses).Error; err != nil {
				return errors.Wrap(err, "insert courses")
			}
		}
		if len(orders) > 0 {
			rows := make([]Order, len(orders))
			for i, o := range orders {
				o = o.InUTC()
				o.Course = nil
				rows[i] = o
			}
			if err := tx.Omit(clause.Associations).CreateInBatches(&rows, 500).Error; err != nil {
				return errors.Wrap(err, "insert orders")
			}
		}
		return nil
	})
}

func (s *GormStore) Query(ctx context.Context, predicate Expr) (Result, error) {
	tx := s.db.WithContext(ctx).Begin(&sql.TxOptions{ReadOnly: true})
	if tx.Error != nil {
		return nil, errors.Wrap(tx.Error, "begin read transaction")
	}
	var where clause.Expression
	if !isMatchAll(predicate) {
		var err error
		where, err = toGormClause(tx, predicate)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
	}
	return &gormResult{tx: tx, where: where}, nil
}

type gormResult struct {
	tx    *gorm.DB
	where clause.Expression
}

func (r *gormResult) scope(ctx context.Context) *gorm.DB {
	q := r.tx.WithContext(ctx).Model(&Order{})
	if r.where != nil {
		q = q.Clauses(clause.Where{Exprs: []clause.Expression{r.where}})
	}
	return q
}

func (r *gormResult) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.scope(ctx).Count(&n).Error; err != nil {
		return 0, errors.Wrap(err, "count orders")
	}
	return n, nil
}

func (r *gormResult) Page(ctx context.Context, number, size int) ([]Order, error) {
	if number < 1 || size < 1 {
		return nil, nil
	}
	var rows []Order
	err := r.scope(ctx).
		Preload("Course").
		Order(clause.OrderByColumn{Column: clause.Column{Table: clause.CurrentTable, Name: "id"}}).
		Offset((number - 1) * size).
		Limit(size).
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "load order page")
	}
	return rows, nil
}

func (r *gormResult) All(ctx context.Context) ([]Order, error) {
	var rows []Order
	err := r.scope(ctx).
		Preload("Course").
		Order(clause.OrderByColumn{Column: clause.Column{Table: clause.CurrentTable, Name: "id"}}).
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "load orders")
	}
	return rows, nil
}

func (r *gormResult) Close() error {
	return r.tx.Rollback().Error
}

// relationTables maps a relation name to its table and the order column that
// references it.
var relationTables = map[string]struct {
	Model      any
	ForeignKey string
}{
	"course": {Model: &Course{}, ForeignKey: "course_id"},
}

// toGormClause converts an Expr tree into a gorm clause.Expression. db is used
// to build subqueries for related fields.
func toGormClause(db *gorm.DB, e Expr) (clause.Expression, error) {
	column := func(f FieldRef) clause.Column {
		return clause.Column{Table: clause.CurrentTable, Name: f.Column}
	}

	if rel := exprRelation(e); rel != "" {
		info, ok := relationTables[rel]
		if !ok {
			return nil, fmt.Errorf("%w: unknown relation %q", ErrUnknownField, rel)
		}
		inner, err := toGormClause(db, unqualify(e))
		if err != nil {
			return nil, err
		}
		sub := db.Session(&gorm.Session{NewDB: true}).Model(info.Model).Select("id").Clauses(clause.Where{Exprs: []clause.Expression{inner}})
		return clause.Expr{SQL: "? IN (?)", Vars: []any{clause.Column{Table: clause.CurrentTable, Name: info.ForeignKey}, sub}}, nil
	}

	switch x := e.(type) {
	case MatchAll:
		return clause.Expr{SQL: "1 = 1"}, nil
	case EqExpr:
		return clause.Eq{Column: column(x.Field), Value: x.Value}, nil
	case GtExpr:
		return clause.Gt{Column: column(x.Field), Value: x.Value}, nil
	case GteExpr:
		return clause.Gte{Column: column(x.Field), Value: x.Value}, nil
	case LtExpr:
		return clause.Lt{Column: column(x.Field), Value: x.Value}, nil
	case LteExpr:
		return clause.Lte{Column: column(x.Field), Value: x.Value}, nil
	case BetweenExpr:
		return clause.Expr{SQL: "? BETWEEN ? AND ?", Vars: []any{column(x.Field), x.Low, x.High}}, nil
	case InExpr:
		return clause.IN{Column: column(x.Field), Values: x.Values}, nil
	case LikeExpr:
		return clause.Expr{SQL: `? LIKE ? ESCAPE '\'`, Vars: []any{column(x.Field), likePattern(x.Value, x.Mode)}}, nil
	case NotNullExpr:
		return clause.Neq{Column: column(x.Field), Value: nil}, nil
	case NotExpr:
		inner, err := toGormClause(db, x.Operand)
		if err != nil {
			return nil, err
		}
		// clause.Not would spread an AND operand into separate negations.
		return clause.NotConditions{Exprs: []clause.Expression{inner}}, nil
	case AndExpr:
		parts, err := toGormClauses(db, x.Operands)
		if err != nil {
			return nil, err
		}
		return clause.And(parts...), nil
	case OrExpr:
		parts, err := toGormClauses(db, x.Operands)
		if err != nil {
			return nil, err
		}
		return clause.Or(parts...), nil
	default:
		return nil, fmt.Errorf("gorm adapter: unsupported expression %T", e)
	}
}

func toGormClauses(db *gorm.DB, operands []Expr) ([]clause.Expression, error) {
	parts := make([]clause.Expression, 0, len(operands))
	for _, op := range operands {
		if op == nil {
			continue
		}
		c, err := toGormClause(db, op)
		if err != nil {
			return nil, err
		}
		parts = append(parts, c)
	}
	return parts, nil
}

// exprRelation returns the relation of a leaf expression, or "" for root
// columns and for combinators.
func exprRelation(e Expr) string {
	switch x := e.(type) {
	case EqExpr:
		return x.Field.Relation
	case GtExpr:
		return x.Field.Relation
	case GteExpr:
		return x.Field.Relation
	case LtExpr:
		return x.Field.Relation
	case LteExpr:
		return x.Field.Relation
	case BetweenExpr:
		return x.Field.Relation
	case InExpr:
		return x.Field.Relation
	case LikeExpr:
		return x.Field.Relation
	case NotNullExpr:
		return x.Field.Relation
	default:
		return ""
	}
}

// unqualify strips the relation from a leaf so it can be rendered against
// the related table itself.
func unqualify(e Expr) Expr {
	strip := func(f FieldRef) FieldRef { return FieldRef{Column: f.Column} }
	switch x := e.(type) {
	case EqExpr:
		x.Field = strip(x.Field)
		return x
	case GtExpr:
		x.Field = strip(x.Field)
		return x
	case GteExpr:
		x.Field = strip(x.Field)
		return x
	case LtExpr:
		x.Field = strip(x.Field)
		return x
	case LteExpr:
		x.Field = strip(x.Field)
		return x
	case BetweenExpr:
		x.Field = strip(x.Field)
		return x
	case InExpr:
		x.Field = strip(x.Field)
		return x
	case LikeExpr:
		x.Field = strip(x.Field)
		return x
	case NotNullExpr:
		x.Field = strip(x.Field)
		return x
	default:
		return e
	}
}
