package trigger

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"scenetrack/internal/fileutil"
	"scenetrack/internal/services"
	"scenetrack/internal/storage"
)

// maxBodyBytes caps push and event payloads.
const maxBodyBytes = 1 << 20

// ErrBadPush reports a push envelope without a message.
var ErrBadPush = fmt.Errorf("%w: invalid Pub/Sub message format", services.ErrValidation)

// Video identifies a video to analyse.
type Video struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Size        string `json:"size"`
	Link        string `json:"link"`
}

// SizeBytes parses Size, returning 0 when it is absent or malformed.
func (v Video) SizeBytes() int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(v.Size), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// Validate checks the fields the pipeline needs.
func (v Video) Validate() error {
	if strings.TrimSpace(v.ID) == "" {
		return fmt.Errorf("%w: video id is required", services.ErrValidation)
	}
	if _, err := storage.ParseURL(v.Link); err != nil {
		return fmt.Errorf("%w: %v", services.ErrValidation, err)
	}
	return nil
}

// PushEnvelope is the body of a Pub/Sub push request.
type PushEnvelope struct {
	Message      *PushMessage `json:"message"`
	Subscription string       `json:"subscription"`
}

// PushMessage carries the base64 encoded video record.
type PushMessage struct {
	Data        string            `json:"data"`
	MessageID   string            `json:"messageId"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	PublishTime string            `json:"publishTime,omitempty"`
}

// DecodePush reads a push envelope and decodes the video record in its
// message data.
func DecodePush(r io.Reader) (Video, PushEnvelope, error) {
	var env PushEnvelope
	if err := json.NewDecoder(io.LimitReader(r, maxBodyBytes)).Decode(&env); err != nil {
		return Video{}, env, fmt.Errorf("%w: %v", ErrBadPush, err)
	}
	if env.Message == nil {
		return Video{}, env, ErrBadPush
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(env.Message.Data))
	if err != nil {
		return Video{}, env, fmt.Errorf("%w: message data is not base64: %v", services.ErrValidation, err)
	}
	var video Video
	if err := json.Unmarshal(raw, &video); err != nil {
		return Video{}, env, fmt.Errorf("%w: message data is not a video record: %v", services.ErrValidation, err)
	}
	return video, env, nil
}

// EncodePush wraps a video record into a push envelope body.
func EncodePush(video Video, messageID string) ([]byte, error) {
	data, err := json.Marshal(video)
	if err != nil {
		return nil, err
	}
	return json.Marshal(PushEnvelope{Message: &PushMessage{
		Data:      base64.StdEncoding.EncodeToString(data),
		MessageID: messageID,
	}})
}

// StorageEvent is an object-finalize notification.
type StorageEvent struct {
	Bucket      string `json:"bucket"`
	Name        string `json:"name"`
	MD5Hash     string `json:"md5Hash"`
	ContentType string `json:"contentType"`
	Size        string `json:"size"`
	SelfLink    string `json:"selfLink,omitempty"`
}

// DecodeStorageEvent reads an object-finalize event and derives the video
// record, keyed by the object's MD5 hash.
func DecodeStorageEvent(r io.Reader) (Video, error) {
	var ev StorageEvent
	if err := json.NewDecoder(io.LimitReader(r, maxBodyBytes)).Decode(&ev); err != nil {
		return Video{}, fmt.Errorf("%w: decode storage event: %v", services.ErrValidation, err)
	}
	return ev.Video()
}

// Video converts the event into a video record.
func (ev StorageEvent) Video() (Video, error) {
	if strings.TrimSpace(ev.MD5Hash) == "" {
		return Video{}, fmt.Errorf("%w: storage event for %q has no md5Hash", services.ErrValidation, ev.Name)
	}
	ref := storage.ObjectRef{Bucket: ev.Bucket, Name: ev.Name}
	video := Video{
		ID:          ev.MD5Hash,
		Name:        ev.Name,
		ContentType: ev.ContentType,
		Size:        ev.Size,
		Link:        ref.String(),
	}
	if err := video.Validate(); err != nil {
		return Video{}, err
	}
	return video, nil
}

// VideoFromFile builds the record for a file already inside a bucket.
func VideoFromFile(store *storage.Store, localPath string) (Video, error) {
	ref, err := store.Ref(localPath)
	if err != nil {
		return Video{}, err
	}
	info, err := os.Stat(localPath)
	if err != nil {
		return Video{}, err
	}
	if info.IsDir() {
		return Video{}, fmt.Errorf("%w: %s is a directory", services.ErrValidation, localPath)
	}
	sum, err := fileutil.MD5Base64(localPath)
	if err != nil {
		return Video{}, err
	}
	return StorageEvent{
		Bucket:      ref.Bucket,
		Name:        ref.Name,
		MD5Hash:     sum,
		ContentType: mime.TypeByExtension(strings.ToLower(filepath.Ext(localPath))),
		Size:        strconv.FormatInt(info.Size(), 10),
	}.Video()
}

// IsBadPush reports whether err came from a malformed push envelope.
func IsBadPush(err error) bool { return errors.Is(err, ErrBadPush) }
