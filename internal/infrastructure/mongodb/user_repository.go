package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/cozyapp/cozyapp-api/internal/domain"
	"github.com/cozyapp/cozyapp-api/internal/domain/entity"
	"github.com/cozyapp/cozyapp-api/internal/domain/repository"
)

const UsersCollection = "users"

var _ repository.UserRepository = (*UserRepository)(nil)

// userDocument is the persisted layout of a user.
type userDocument struct {
	ID               primitive.ObjectID `bson:"_id,omitempty"`
	Email            string             `bson:"email"`
	Name             string             `bson:"name"`
	PasswordHash     string             `bson:"password"`
	IsActive         bool               `bson:"isActive"`
	Roles            []string           `bson:"roles"`
	LastLogin        time.Time          `bson:"lastLogin"`
	Preferences      entity.Preferences `bson:"preferences"`
	ResetToken       *string            `bson:"resetToken,omitempty"`
	ResetTokenExpiry *time.Time         `bson:"resetTokenExpiry,omitempty"`
	CreatedAt        time.Time          `bson:"createdAt"`
	UpdatedAt        time.Time          `bson:"updatedAt"`
}

func (d *userDocument) toEntity() *entity.User {
	return &entity.User{
		ID:               d.ID.Hex(),
		Email:            d.Email,
		Name:             d.Name,
		PasswordHash:     d.PasswordHash,
		IsActive:         d.IsActive,
		Roles:            entity.Roles(d.Roles),
		LastLogin:        d.LastLogin,
		Preferences:      d.Preferences,
		ResetToken:       d.ResetToken,
		ResetTokenExpiry: d.ResetTokenExpiry,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
}

type UserRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection(UsersCollection)}
}

// Collection exposes the underlying collection for index setup.
func (r *UserRepository) Collection() *mongo.Collection { return r.coll }

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	now := time.Now().UTC()
	doc := userDocument{
		ID:           primitive.NewObjectID(),
		Email:        u.Email,
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		IsActive:     u.IsActive,
		Roles:        u.Roles.Normalize(),
		LastLogin:    u.LastLogin,
		Preferences:  u.Preferences,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.Duplicate("email")
		}
		return fmt.Errorf("insert user: %w", err)
	}
	u.ID = doc.ID.Hex()
	u.Roles = doc.Roles
	u.CreatedAt, u.UpdatedAt = now, now
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.NotFound("user not found")
	}
	u, err := r.findOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, domain.NotFound("user not found")
	}
	return u, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *UserRepository) FindByResetToken(ctx context.Context, token string, now time.Time) (*entity.User, error) {
	if token == "" {
		return nil, nil
	}
	return r.findOne(ctx, resetFilter(token, now))
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*entity.User, error) {
	var doc userDocument
	err := r.coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return doc.toEntity(), nil
}

func (r *UserRepository) List(ctx context.Context, f entity.UserFilter) ([]*entity.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cur, err := r.coll.Find(ctx, buildFilter(f), opts)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer func() { _ = cur.Close(ctx) }()

	out := make([]*entity.User, 0)
	for cur.Next(ctx) {
		var doc userDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode user: %w", err)
		}
		out = append(out, doc.toEntity())
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return out, nil
}

func (r *UserRepository) Count(ctx context.Context, f entity.UserFilter) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, buildFilter(f))
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id, name, passwordHash string) (*entity.User, error) {
	set := bson.M{"name": name}
	if passwordHash != "" {
		set["password"] = passwordHash
	}
	return r.updateByID(ctx, id, bson.M{"$set": set})
}

func (r *UserRepository) SetActive(ctx context.Context, id string, active bool) (*entity.User, error) {
	return r.updateByID(ctx, id, bson.M{"$set": bson.M{"isActive": active}})
}

func (r *UserRepository) SetRoles(ctx context.Context, id string, roles entity.Roles) (*entity.User, error) {
	return r.updateByID(ctx, id, bson.M{"$set": bson.M{"roles": []string(roles.Normalize())}})
}

func (r *UserRepository) SetPreferences(ctx context.Context, id string, prefs entity.Preferences) (*entity.User, error) {
	return r.updateByID(ctx, id, bson.M{"$set": bson.M{"preferences": prefs}})
}

func (r *UserRepository) ReplacePassword(ctx context.Context, id, passwordHash string) error {
	_, err := r.updateByID(ctx, id, replacePasswordUpdate(passwordHash))
	return err
}

func (r *UserRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	_, err := r.updateByID(ctx, id, bson.M{"$set": bson.M{"lastLogin": at}})
	return err
}

func (r *UserRepository) SetResetToken(ctx context.Context, id, token string, expiry time.Time) error {
	_, err := r.updateByID(ctx, id, bson.M{"$set": bson.M{"resetToken": token, "resetTokenExpiry": expiry}})
	return err
}

func (r *UserRepository) ConsumeResetToken(ctx context.Context, token string, now time.Time, passwordHash string) (*entity.User, error) {
	if token == "" {
		return nil, domain.ErrInvalidOrExpiredToken
	}
	update := replacePasswordUpdate(passwordHash)
	update["$set"].(bson.M)["updatedAt"] = time.Now().UTC()
	u, err := r.findOneAndUpdate(ctx, resetFilter(token, now), update)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, domain.ErrInvalidOrExpiredToken
	}
	return u, nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.NotFound("user not found")
	}
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.NotFound("user not found")
	}
	return nil
}

// updateByID applies update and stamps updatedAt in the same write.
func (r *UserRepository) updateByID(ctx context.Context, id string, update bson.M) (*entity.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.NotFound("user not found")
	}
	set, _ := update["$set"].(bson.M)
	if set == nil {
		set = bson.M{}
	}
	set["updatedAt"] = time.Now().UTC()
	update["$set"] = set

	u, err := r.findOneAndUpdate(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, domain.NotFound("user not found")
	}
	return u, nil
}

func (r *UserRepository) findOneAndUpdate(ctx context.Context, filter, update bson.M) (*entity.User, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc userDocument
	err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return doc.toEntity(), nil
}

// replacePasswordUpdate sets the hash and drops the reset pair in one update document.
func replacePasswordUpdate(passwordHash string) bson.M {
	return bson.M{
		"$set":   bson.M{"password": passwordHash},
		"$unset": bson.M{"resetToken": "", "resetTokenExpiry": ""},
	}
}

func resetFilter(token string, now time.Time) bson.M {
	return bson.M{"resetToken": token, "resetTokenExpiry": bson.M{"$gt": now}}
}

func buildFilter(f entity.UserFilter) bson.M {
	filter := bson.M{}
	if f.Active != nil {
		filter["isActive"] = *f.Active
	}
	switch f.Role {
	case entity.RoleAdmin:
		filter["roles"] = entity.RoleAdmin
	case entity.RoleUser:
		filter["roles"] = bson.M{"$ne": entity.RoleAdmin}
	}
	if f.CreatedSince != nil {
		filter["createdAt"] = bson.M{"$gte": *f.CreatedSince}
	}
	if f.LastLoginSince != nil {
		filter["lastLogin"] = bson.M{"$gte": *f.LastLoginSince}
	}
	return filter
}
