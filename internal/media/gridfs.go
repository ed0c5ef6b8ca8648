package media

import (
	"context"
	"errors"
	"io"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GridFS keeps file bytes in MongoDB and hands out /media/{id} references.
type GridFS struct {
	db *mongo.Database
}

func NewGridFS(client *mongo.Client, dbName string) *GridFS {
	return &GridFS{db: client.Database(dbName)}
}

func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}
	return client, nil
}

func (g *GridFS) Save(_ context.Context, file File) (string, error) {
	if len(file.Data) == 0 {
		return "", ErrInvalidData
	}
	bucket, err := gridfs.NewBucket(g.db)
	if err != nil {
		return "", err
	}
	name := file.Name
	if name == "" {
		name = "upload"
	}
	opts := options.GridFSUpload().SetMetadata(bson.M{"contentType": file.ContentType, "folder": file.Folder})
	stream, err := bucket.OpenUploadStream(name, opts)
	if err != nil {
		return "", err
	}
	if _, err := stream.Write(file.Data); err != nil {
		_ = stream.Abort()
		return "", err
	}
	if err := stream.Close(); err != nil {
		return "", err
	}
	return "/media/" + stream.FileID.(primitive.ObjectID).Hex(), nil
}

func (g *GridFS) Open(_ context.Context, id string) (File, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return File{}, ErrNotFound
	}
	bucket, err := gridfs.NewBucket(g.db)
	if err != nil {
		return File{}, err
	}
	stream, err := bucket.OpenDownloadStream(objID)
	if errors.Is(err, gridfs.ErrFileNotFound) {
		return File{}, ErrNotFound
	}
	if err != nil {
		return File{}, err
	}
	defer stream.Close()

	data, err := io.ReadAll(stream)
	if err != nil {
		return File{}, err
	}
	out := File{Name: stream.GetFile().Name, Data: data}
	if meta := stream.GetFile().Metadata; meta != nil {
		if ct, ok := meta.Lookup("contentType").StringValueOK(); ok {
			out.ContentType = ct
		}
	}
	return out, nil
}
