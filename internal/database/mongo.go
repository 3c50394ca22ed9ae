package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"creatorhub/entity"
	"creatorhub/internal/config"
)

const (
	collectionUsers       = "users"
	collectionCreators    = "creators"
	collectionCodes       = "wl_codes"
	collectionWithdrawals = "withdrawals"
)

type MongoDB struct {
	ctx           context.Context
	clientOptions *options.ClientOptions
	database      string
}

func NewMongoClient(conf *config.Config) *MongoDB {
	if !conf.Mongo.Enabled {
		return nil
	}
	connectionUri := fmt.Sprintf("mongodb://%s:%s", conf.Mongo.Host, conf.Mongo.Port)
	clientOptions := options.Client().ApplyURI(connectionUri)
	if conf.Mongo.User != "" {
		clientOptions.SetAuth(options.Credential{
			Username:   conf.Mongo.User,
			Password:   conf.Mongo.Password,
			AuthSource: conf.Mongo.Database,
		})
	}
	client := &MongoDB{
		ctx:           context.Background(),
		clientOptions: clientOptions,
		database:      conf.Mongo.Database,
	}
	return client
}

func (m *MongoDB) connect() (*mongo.Client, error) {
	connection, err := mongo.Connect(m.ctx, m.clientOptions)
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}
	return connection, nil
}

func (m *MongoDB) disconnect(connection *mongo.Client) {
	_ = connection.Disconnect(m.ctx)
}

// notFound maps the driver's no-documents sentinel to the domain error.
func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return entity.ErrNotFound
	}
	return fmt.Errorf("mongodb: %w", err)
}

// --- users (API tokens + bot subscribers) ---

func (m *MongoDB) GetUser(token string) (*entity.User, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionUsers)
	filter := bson.D{{Key: "token", Value: token}}
	var user entity.User
	if err = collection.FindOne(m.ctx, filter).Decode(&user); err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (m *MongoDB) GetTelegramUsers() ([]*entity.User, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionUsers)
	filter := bson.D{{Key: "telegram_id", Value: bson.D{{Key: "$gt", Value: 0}}}}
	cursor, err := collection.Find(m.ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(m.ctx)

	var users []*entity.User
	if err = cursor.All(m.ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (m *MongoDB) GetTelegramUserById(telegramId int64) (*entity.User, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionUsers)
	filter := bson.D{{Key: "telegram_id", Value: telegramId}}
	var user entity.User
	if err = collection.FindOne(m.ctx, filter).Decode(&user); err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (m *MongoDB) RegisterTelegramUser(telegramId int64, username string) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionUsers)
	filter := bson.D{{Key: "telegram_id", Value: telegramId}}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "telegram_username", Value: username},
		{Key: "telegram_enabled", Value: true},
	}}, {Key: "$setOnInsert", Value: bson.D{
		{Key: "username", Value: username},
		{Key: "telegram_id", Value: telegramId},
		{Key: "telegram_role", Value: entity.RolePending},
		{Key: "registered_at", Value: time.Now()},
	}}}
	opts := options.Update().SetUpsert(true)
	_, err = collection.UpdateOne(m.ctx, filter, update, opts)
	return err
}

func (m *MongoDB) SetTelegramRole(telegramId int64, role entity.TelegramRole) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionUsers)
	filter := bson.D{{Key: "telegram_id", Value: telegramId}}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "telegram_role", Value: role},
		{Key: "telegram_enabled", Value: role == entity.RoleUser || role == entity.RoleAdmin},
	}}}
	_, err = collection.UpdateOne(m.ctx, filter, update)
	return err
}

// --- creators (progression store) ---

func (m *MongoDB) CreateCreator(creator *entity.Creator) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionCreators)
	_, err = collection.InsertOne(m.ctx, creator)
	return err
}

func (m *MongoDB) GetCreator(id string) (*entity.Creator, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionCreators)
	filter := bson.D{{Key: "_id", Value: id}}
	var creator entity.Creator
	if err = collection.FindOne(m.ctx, filter).Decode(&creator); err != nil {
		return nil, notFound(err)
	}
	return &creator, nil
}

func (m *MongoDB) CreatorByTelegramId(telegramId int64) (*entity.Creator, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionCreators)
	filter := bson.D{{Key: "telegram_id", Value: telegramId}}
	var creator entity.Creator
	if err = collection.FindOne(m.ctx, filter).Decode(&creator); err != nil {
		return nil, notFound(err)
	}
	return &creator, nil
}

// ApplyProgressDelta atomically increments the area accumulator,
// clamped at zero so a negative delta can never drive progress below it.
// Returns the updated creator.
func (m *MongoDB) ApplyProgressDelta(id string, area entity.AreaKind, delta float64) (*entity.Creator, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	field := "progress." + string(area)
	collection := connection.Database(m.database).Collection(collectionCreators)
	filter := bson.D{{Key: "_id", Value: id}}
	update := mongo.Pipeline{bson.D{{Key: "$set", Value: bson.D{
		{Key: field, Value: bson.D{{Key: "$max", Value: bson.A{0, bson.D{{Key: "$add", Value: bson.A{
			bson.D{{Key: "$ifNull", Value: bson.A{"$" + field, 0}}},
			delta,
		}}}}}}},
	}}}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var creator entity.Creator
	if err = collection.FindOneAndUpdate(m.ctx, filter, update, opts).Decode(&creator); err != nil {
		return nil, notFound(err)
	}
	return &creator, nil
}

func (m *MongoDB) AddBonus(id string, amountCents int64) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionCreators)
	filter := bson.D{{Key: "_id", Value: id}}
	update := bson.D{{Key: "$inc", Value: bson.D{{Key: "bonus_cents", Value: amountCents}}}}
	res, err := collection.UpdateOne(m.ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return entity.ErrNotFound
	}
	return nil
}

// TakeBonus atomically zeroes the bonus balance and returns the amount
// that was held, so a withdrawal can include it exactly once.
func (m *MongoDB) TakeBonus(id string) (int64, error) {
	connection, err := m.connect()
	if err != nil {
		return 0, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionCreators)
	filter := bson.D{{Key: "_id", Value: id}}
	update := bson.D{{Key: "$set", Value: bson.D{{Key: "bonus_cents", Value: int64(0)}}}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.Before)
	var creator entity.Creator
	if err = collection.FindOneAndUpdate(m.ctx, filter, update, opts).Decode(&creator); err != nil {
		return 0, notFound(err)
	}
	return creator.BonusCents, nil
}

func (m *MongoDB) SetCouponRef(id string, ref *entity.CouponRef) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionCreators)
	filter := bson.D{{Key: "_id", Value: id}}
	var update bson.D
	if ref == nil {
		update = bson.D{{Key: "$unset", Value: bson.D{{Key: "coupon", Value: ""}}}}
	} else {
		update = bson.D{{Key: "$set", Value: bson.D{{Key: "coupon", Value: ref}}}}
	}
	res, err := collection.UpdateOne(m.ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return entity.ErrNotFound
	}
	return nil
}

// ResetProgress zeroes every tracked counter. An empty progress
// document reads as zero everywhere.
func (m *MongoDB) ResetProgress(id string) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionCreators)
	filter := bson.D{{Key: "_id", Value: id}}
	update := bson.D{{Key: "$set", Value: bson.D{{Key: "progress", Value: bson.D{}}}}}
	res, err := collection.UpdateOne(m.ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return entity.ErrNotFound
	}
	return nil
}

func (m *MongoDB) IncrementLevel(id string) (*entity.Creator, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionCreators)
	filter := bson.D{{Key: "_id", Value: id}}
	update := bson.D{
		{Key: "$inc", Value: bson.D{{Key: "level", Value: 1}}},
		{Key: "$set", Value: bson.D{{Key: "last_level_up_at", Value: time.Now()}}},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var creator entity.Creator
	if err = collection.FindOneAndUpdate(m.ctx, filter, update, opts).Decode(&creator); err != nil {
		return nil, notFound(err)
	}
	return &creator, nil
}

func (m *MongoDB) MarkContracted(id string, contracted bool) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionCreators)
	filter := bson.D{{Key: "_id", Value: id}}
	update := bson.D{{Key: "$set", Value: bson.D{{Key: "contracted", Value: contracted}}}}
	res, err := collection.UpdateOne(m.ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return entity.ErrNotFound
	}
	return nil
}

func (m *MongoDB) SetGoal(id string, area entity.AreaKind, target float64) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionCreators)
	filter := bson.D{{Key: "_id", Value: id}}
	update := bson.D{
		{Key: "$set", Value: bson.D{{Key: "goals." + string(area), Value: target}}},
		{Key: "$addToSet", Value: bson.D{{Key: "assigned_areas", Value: area}}},
	}
	res, err := collection.UpdateOne(m.ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return entity.ErrNotFound
	}
	return nil
}

// --- wl codes (redemption ledger) ---

func (m *MongoDB) InsertCodes(codes []*entity.WLCode) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	docs := make([]interface{}, len(codes))
	for i, code := range codes {
		docs[i] = code
	}
	collection := connection.Database(m.database).Collection(collectionCodes)
	_, err = collection.InsertMany(m.ctx, docs)
	return err
}

// RedeemCode flips used=false -> used=true as a single conditional
// update. A concurrent loser finds no matching document and gets
// ErrCodeNotFound, indistinguishable from an absent code.
func (m *MongoDB) RedeemCode(code, playerId, playerName string, at time.Time) (*entity.WLCode, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionCodes)
	filter := bson.D{{Key: "_id", Value: code}, {Key: "used", Value: false}}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "used", Value: true},
		{Key: "used_by", Value: playerId},
		{Key: "used_by_name", Value: playerName},
		{Key: "used_at", Value: at},
	}}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var wl entity.WLCode
	if err = collection.FindOneAndUpdate(m.ctx, filter, update, opts).Decode(&wl); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, entity.ErrCodeNotFound
		}
		return nil, fmt.Errorf("mongodb: %w", err)
	}
	return &wl, nil
}

func (m *MongoDB) CodesByOwner(creatorId string) ([]*entity.WLCode, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionCodes)
	filter := bson.D{{Key: "owner_id", Value: creatorId}}
	cursor, err := collection.Find(m.ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(m.ctx)

	var codes []*entity.WLCode
	if err = cursor.All(m.ctx, &codes); err != nil {
		return nil, err
	}
	return codes, nil
}

func (m *MongoDB) DeleteCodesByOwner(creatorId string) (int64, error) {
	connection, err := m.connect()
	if err != nil {
		return 0, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionCodes)
	filter := bson.D{{Key: "owner_id", Value: creatorId}}
	res, err := collection.DeleteMany(m.ctx, filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// --- withdrawals (append-only audit log) ---

func (m *MongoDB) SaveWithdrawal(request *entity.WithdrawalRequest) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionWithdrawals)
	_, err = collection.InsertOne(m.ctx, request)
	return err
}

func (m *MongoDB) WithdrawalsByCreator(creatorId string) ([]*entity.WithdrawalRequest, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionWithdrawals)
	filter := bson.D{{Key: "creator_id", Value: creatorId}}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := collection.Find(m.ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(m.ctx)

	var requests []*entity.WithdrawalRequest
	if err = cursor.All(m.ctx, &requests); err != nil {
		return nil, err
	}
	return requests, nil
}
