package mongodb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/cozyapp/cozyapp-api/internal/domain"
	"github.com/cozyapp/cozyapp-api/internal/domain/entity"
)

func TestResetFilter_ExpiryIsExclusive(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	f := resetFilter("tok", now)

	assert.Equal(t, "tok", f["resetToken"])
	assert.Equal(t, bson.M{"$gt": now}, f["resetTokenExpiry"])
	assert.Len(t, f, 2)
}

func TestReplacePasswordUpdate_UnsetsResetPair(t *testing.T) {
	u := replacePasswordUpdate("new-hash")
	assert.Equal(t, bson.M{"password": "new-hash"}, u["$set"])
	assert.Equal(t, bson.M{"resetToken": "", "resetTokenExpiry": ""}, u["$unset"])
}

func TestBuildFilter(t *testing.T) {
	yes, no := true, false
	since := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		in   entity.UserFilter
		want bson.M
	}{
		{"empty", entity.UserFilter{}, bson.M{}},
		{"active", entity.UserFilter{Active: &yes}, bson.M{"isActive": true}},
		{"inactive", entity.UserFilter{Active: &no}, bson.M{"isActive": false}},
		{"admins", entity.UserFilter{Role: entity.RoleAdmin}, bson.M{"roles": entity.RoleAdmin}},
		{"user means not admin", entity.UserFilter{Role: entity.RoleUser}, bson.M{"roles": bson.M{"$ne": entity.RoleAdmin}}},
		{"unknown role ignored", entity.UserFilter{Role: "owner"}, bson.M{}},
		{"created since", entity.UserFilter{CreatedSince: &since}, bson.M{"createdAt": bson.M{"$gte": since}}},
		{"last login since", entity.UserFilter{LastLoginSince: &since}, bson.M{"lastLogin": bson.M{"$gte": since}}},
		{
			"combined",
			entity.UserFilter{Active: &yes, Role: entity.RoleUser, CreatedSince: &since},
			bson.M{"isActive": true, "roles": bson.M{"$ne": entity.RoleAdmin}, "createdAt": bson.M{"$gte": since}},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, buildFilter(tc.in))
		})
	}
}

func userDoc(id primitive.ObjectID, hash string) bson.D {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "email", Value: "alice@example.com"},
		{Key: "name", Value: "Alice"},
		{Key: "password", Value: hash},
		{Key: "isActive", Value: true},
		{Key: "roles", Value: bson.A{"user"}},
		{Key: "lastLogin", Value: now},
		{Key: "createdAt", Value: now},
		{Key: "updatedAt", Value: now},
	}
}

func TestUserRepository_MockDeployment(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("create assigns id", func(mt *mtest.T) {
		r := NewUserRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		u := &entity.User{Email: "alice@example.com", Name: "Alice", PasswordHash: "hash", IsActive: true}
		require.NoError(mt, r.Create(ctx, u))
		assert.True(mt, primitive.IsValidObjectID(u.ID))
		assert.Equal(mt, entity.Roles{entity.RoleUser}, u.Roles)
	})

	mt.Run("duplicate email", func(mt *mtest.T) {
		r := NewUserRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error collection: cozyapp.users index: uniq_email",
		}))

		err := r.Create(ctx, &entity.User{Email: "alice@example.com", Name: "Alice", PasswordHash: "hash"})
		require.Error(mt, err)
		assert.ErrorIs(mt, err, domain.ErrDuplicateCredential)
		var de *domain.Error
		require.True(mt, errors.As(err, &de))
		assert.Equal(mt, "email", de.Field)
		assert.NotContains(mt, de.Message, "E11000")
	})

	mt.Run("find by id", func(mt *mtest.T) {
		r := NewUserRepository(mt.DB)
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "cozyapp.users", mtest.FirstBatch, userDoc(id, "hash")))

		u, err := r.FindByID(ctx, id.Hex())
		require.NoError(mt, err)
		assert.Equal(mt, id.Hex(), u.ID)
		assert.Equal(mt, "alice@example.com", u.Email)
		assert.Nil(mt, u.ResetToken)
	})

	mt.Run("malformed id is not found", func(mt *mtest.T) {
		r := NewUserRepository(mt.DB)
		_, err := r.FindByID(ctx, "not-an-object-id")
		assert.ErrorIs(mt, err, domain.ErrNotFound)
		assert.ErrorIs(mt, r.Delete(ctx, "not-an-object-id"), domain.ErrNotFound)
	})

	mt.Run("consume reset token", func(mt *mtest.T) {
		r := NewUserRepository(mt.DB)
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: userDoc(id, "new-hash")}))

		u, err := r.ConsumeResetToken(ctx, "tok", time.Now(), "new-hash")
		require.NoError(mt, err)
		assert.Equal(mt, id.Hex(), u.ID)
		assert.Equal(mt, "new-hash", u.PasswordHash)
		assert.Nil(mt, u.ResetToken)
		assert.Nil(mt, u.ResetTokenExpiry)
	})

	mt.Run("consume reset token without a match", func(mt *mtest.T) {
		r := NewUserRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}))

		_, err := r.ConsumeResetToken(ctx, "tok", time.Now(), "new-hash")
		assert.ErrorIs(mt, err, domain.ErrInvalidOrExpiredToken)
	})

	mt.Run("empty reset token never reaches the server", func(mt *mtest.T) {
		r := NewUserRepository(mt.DB)
		_, err := r.ConsumeResetToken(ctx, "", time.Now(), "new-hash")
		assert.ErrorIs(mt, err, domain.ErrInvalidOrExpiredToken)

		u, err := r.FindByResetToken(ctx, "", time.Now())
		assert.NoError(mt, err)
		assert.Nil(mt, u)
	})

	mt.Run("replace password on unknown user", func(mt *mtest.T) {
		r := NewUserRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}))

		err := r.ReplacePassword(ctx, primitive.NewObjectID().Hex(), "new-hash")
		assert.ErrorIs(mt, err, domain.ErrNotFound)
	})

	mt.Run("delete missing user", func(mt *mtest.T) {
		r := NewUserRepository(mt.DB)
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 0}})

		err := r.Delete(ctx, primitive.NewObjectID().Hex())
		assert.ErrorIs(mt, err, domain.ErrNotFound)
	})
}
