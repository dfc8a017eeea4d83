package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/pebble"

	"fluxplay/pkg/logger"
	"fluxplay/pkg/models"
)

// ErrNotFound is returned when a chat or block does not exist. Handlers
// map it to a 404 ("conversation unavailable") which is fatal for a run.
var ErrNotFound = errors.New("not found")

var (
	db     *pebble.DB
	dbPath string
)

// seq reduces key collisions when multiple appends share the same
// nanosecond timestamp.
var seq uint64

// Key layout:
//
//	chat:<chatID>:meta                                      -> models.Chat JSON
//	chat:<chatID>:block:<position padded>                   -> models.Block JSON
//	chat:<chatID>:blockidx:<blockID>                        -> padded position
//	chat:<chatID>:run:<runID>:var:<name>:<ts padded>-<seq>  -> models.Capture JSON
//	log:<chatID>:<ts padded>-<seq>                          -> models.ActionEvent JSON
//
// Blocks sort by padded position, captures by name then write time, and
// log entries by append time, so every listing is a single prefix scan.

// Open opens (or creates) a Pebble database at the given path and keeps
// a global handle for simple usage in this package.
func Open(path string) error {
	var err error
	logger.Info("opening_pebble_db", "path", path)
	db, err = pebble.Open(path, &pebble.Options{})
	if err != nil {
		logger.Error("pebble_open_failed", "path", path, "error", err)
		return err
	}
	dbPath = path
	logger.Info("pebble_opened", "path", path)
	return nil
}

// Close closes the opened pebble DB if present.
func Close() error {
	if db == nil {
		return nil
	}
	if err := db.Close(); err != nil {
		return err
	}
	db = nil
	logger.Info("pebble_closed")
	return nil
}

// Ready reports whether the store is opened and ready.
func Ready() bool {
	return db != nil
}

func notOpened() error {
	return fmt.Errorf("pebble not opened; call store.Open first")
}

func posKey(chatID string, position int) []byte {
	return []byte(fmt.Sprintf("chat:%s:block:%010d", chatID, position))
}

func idxKey(chatID, blockID string) []byte {
	return []byte("chat:" + chatID + ":blockidx:" + blockID)
}

// --- Chats ---

// SaveChat stores chat template metadata under a reserved key.
func SaveChat(c models.Chat) error {
	if db == nil {
		return notOpened()
	}
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal chat: %w", err)
	}
	key := []byte("chat:" + c.ID + ":meta")
	if err := db.Set(key, data, pebble.Sync); err != nil {
		logger.Error("save_chat_failed", "chat", c.ID, "error", err)
		return err
	}
	logger.Info("chat_saved", "chat", c.ID)
	return nil
}

// GetChat returns the stored chat metadata for a chat ID.
func GetChat(chatID string) (models.Chat, error) {
	var c models.Chat
	if db == nil {
		return c, notOpened()
	}
	v, closer, err := db.Get([]byte("chat:" + chatID + ":meta"))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return c, ErrNotFound
		}
		return c, err
	}
	defer closer.Close()
	if err := json.Unmarshal(v, &c); err != nil {
		return c, fmt.Errorf("invalid chat metadata: %w", err)
	}
	return c, nil
}

// ListChats returns all saved chat metadata records.
func ListChats() ([]models.Chat, error) {
	if db == nil {
		return nil, notOpened()
	}
	prefix := []byte("chat:")
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []models.Chat
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		if !strings.HasSuffix(string(iter.Key()), ":meta") {
			continue
		}
		var c models.Chat
		if err := json.Unmarshal(iter.Value(), &c); err == nil {
			out = append(out, c)
		}
	}
	return out, iter.Error()
}

// DeleteChat removes a chat and every block, capture and log entry under it.
func DeleteChat(chatID string) error {
	if db == nil {
		return notOpened()
	}
	for _, prefix := range []string{"chat:" + chatID + ":", "log:" + chatID + ":"} {
		keys, err := keysWithPrefix(prefix)
		if err != nil {
			return err
		}
		for _, k := range keys {
			if err := db.Delete([]byte(k), pebble.Sync); err != nil {
				logger.Error("delete_chat_failed", "chat", chatID, "key", k, "error", err)
				return err
			}
		}
	}
	logger.Info("chat_deleted", "chat", chatID)
	return nil
}

// --- Blocks ---

// SaveBlock writes an authored block at its position and indexes it by ID.
// Writing an existing ID at a new position moves the block.
func SaveBlock(b models.Block) error {
	if db == nil {
		return notOpened()
	}
	if b.Chat == "" || b.ID == "" {
		return fmt.Errorf("block requires chat and id")
	}
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("failed to marshal block: %w", err)
	}
	// drop the old position entry when the block moves
	if old, closer, gerr := db.Get(idxKey(b.Chat, b.ID)); gerr == nil {
		oldKey := "chat:" + b.Chat + ":block:" + string(old)
		closer.Close()
		if oldKey != string(posKey(b.Chat, b.Position)) {
			if err := db.Delete([]byte(oldKey), pebble.Sync); err != nil {
				return err
			}
		}
	}
	if err := db.Set(posKey(b.Chat, b.Position), data, pebble.Sync); err != nil {
		logger.Error("save_block_failed", "chat", b.Chat, "block", b.ID, "error", err)
		return err
	}
	pad := fmt.Sprintf("%010d", b.Position)
	if err := db.Set(idxKey(b.Chat, b.ID), []byte(pad), pebble.Sync); err != nil {
		logger.Error("save_block_index_failed", "chat", b.Chat, "block", b.ID, "error", err)
		return err
	}
	metricBlockSaves.Inc()
	logger.Info("block_saved", "chat", b.Chat, "block", b.ID, "position", b.Position, "kind", string(b.Kind))
	return nil
}

// ListBlocks returns every block of a chat in ascending position order,
// sections included. Gaps in positions are tolerated; ordering comes from
// the sorted key scan, never from index arithmetic.
func ListBlocks(chatID string) ([]models.Block, error) {
	if db == nil {
		return nil, notOpened()
	}
	prefix := []byte("chat:" + chatID + ":block:")
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []models.Block
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		var b models.Block
		if err := json.Unmarshal(iter.Value(), &b); err != nil {
			logger.Error("list_blocks_invalid_json", "chat", chatID, "key", string(iter.Key()), "error", err)
			continue
		}
		out = append(out, b)
	}
	return out, iter.Error()
}

// GetBlock looks a block up by ID via the position index.
func GetBlock(chatID, blockID string) (models.Block, error) {
	var b models.Block
	if db == nil {
		return b, notOpened()
	}
	pad, closer, err := db.Get(idxKey(chatID, blockID))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return b, ErrNotFound
		}
		return b, err
	}
	key := "chat:" + chatID + ":block:" + string(pad)
	closer.Close()
	v, closer2, err := db.Get([]byte(key))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return b, ErrNotFound
		}
		return b, err
	}
	defer closer2.Close()
	if err := json.Unmarshal(v, &b); err != nil {
		return b, fmt.Errorf("invalid block JSON: %w", err)
	}
	return b, nil
}

// DeleteBlock removes a block and its index entry.
func DeleteBlock(chatID, blockID string) error {
	if db == nil {
		return notOpened()
	}
	pad, closer, err := db.Get(idxKey(chatID, blockID))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	key := "chat:" + chatID + ":block:" + string(pad)
	closer.Close()
	if err := db.Delete([]byte(key), pebble.Sync); err != nil {
		return err
	}
	if err := db.Delete(idxKey(chatID, blockID), pebble.Sync); err != nil {
		return err
	}
	logger.Info("block_deleted", "chat", chatID, "block", blockID)
	return nil
}

// NextPosition returns the position after the last stored block of a chat.
func NextPosition(chatID string) (int, error) {
	blocks, err := ListBlocks(chatID)
	if err != nil {
		return 0, err
	}
	if len(blocks) == 0 {
		return 0, nil
	}
	return blocks[len(blocks)-1].Position + 1, nil
}

// ReorderBlocks rewrites the blocks of a chat into the dense position
// order given by ids. Every stored block must appear exactly once.
func ReorderBlocks(chatID string, ids []string) error {
	if db == nil {
		return notOpened()
	}
	blocks, err := ListBlocks(chatID)
	if err != nil {
		return err
	}
	if len(ids) != len(blocks) {
		return fmt.Errorf("reorder requires all %d block ids, got %d", len(blocks), len(ids))
	}
	byID := make(map[string]models.Block, len(blocks))
	for _, b := range blocks {
		byID[b.ID] = b
	}
	ordered := make([]models.Block, 0, len(ids))
	for _, id := range ids {
		b, ok := byID[id]
		if !ok {
			return fmt.Errorf("unknown block id %q", id)
		}
		delete(byID, id)
		ordered = append(ordered, b)
	}
	// clear existing position entries, then rewrite densely
	for _, b := range blocks {
		if err := db.Delete(posKey(chatID, b.Position), pebble.Sync); err != nil {
			return err
		}
	}
	for i, b := range ordered {
		b.Position = i
		if err := SaveBlock(b); err != nil {
			return err
		}
	}
	logger.Info("blocks_reordered", "chat", chatID, "count", len(ordered))
	return nil
}

// --- Captures ---

// SaveCapture appends a run capture. Appends never overwrite; reads
// resolve the most recent value per name.
func SaveCapture(c models.Capture) error {
	if db == nil {
		return notOpened()
	}
	if c.CreatedTS == 0 {
		c.CreatedTS = time.Now().UTC().UnixNano()
	}
	s := atomic.AddUint64(&seq, 1)
	key := fmt.Sprintf("chat:%s:run:%s:var:%s:%020d-%06d", c.Chat, c.Run, c.Name, c.CreatedTS, s)
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal capture: %w", err)
	}
	if err := db.Set([]byte(key), data, pebble.Sync); err != nil {
		logger.Error("save_capture_failed", "chat", c.Chat, "run", c.Run, "name", c.Name, "error", err)
		return err
	}
	metricCaptureSaves.Inc()
	logger.Info("capture_saved", "chat", c.Chat, "run", c.Run, "name", c.Name)
	return nil
}

// LatestCaptures returns the most recent value per capture name for one
// (chat, run). Keys sort by name then write time, so the last entry seen
// per name wins without any comparison logic.
func LatestCaptures(chatID, runID string) (map[string]string, error) {
	if db == nil {
		return nil, notOpened()
	}
	prefix := []byte("chat:" + chatID + ":run:" + runID + ":var:")
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	out := make(map[string]string)
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		var c models.Capture
		if err := json.Unmarshal(iter.Value(), &c); err != nil {
			logger.Error("latest_captures_invalid_json", "chat", chatID, "run", runID, "error", err)
			continue
		}
		out[c.Name] = c.Value
	}
	return out, iter.Error()
}

// ListCaptures returns every capture of a chat across runs in write order.
// Used by analytics exports.
func ListCaptures(chatID string) ([]models.Capture, error) {
	if db == nil {
		return nil, notOpened()
	}
	prefix := []byte("chat:" + chatID + ":run:")
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []models.Capture
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		var c models.Capture
		if err := json.Unmarshal(iter.Value(), &c); err == nil {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedTS < out[j].CreatedTS })
	return out, iter.Error()
}

// --- Action log ---

// AppendAction appends one analytics event to the chat's log.
func AppendAction(e models.ActionEvent) error {
	if db == nil {
		return notOpened()
	}
	if e.TS == 0 {
		e.TS = time.Now().UTC().UnixNano()
	}
	s := atomic.AddUint64(&seq, 1)
	key := fmt.Sprintf("log:%s:%020d-%06d", e.Chat, e.TS, s)
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal action event: %w", err)
	}
	if err := db.Set([]byte(key), data, pebble.Sync); err != nil {
		logger.Error("append_action_failed", "chat", e.Chat, "action", string(e.Action), "error", err)
		return err
	}
	metricActionAppends.Inc()
	return nil
}

// ListActions returns the action log of a chat in append order. limit
// trims to the most recent entries when positive.
func ListActions(chatID string, limit ...int) ([]models.ActionEvent, error) {
	if db == nil {
		return nil, notOpened()
	}
	prefix := []byte("log:" + chatID + ":")
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []models.ActionEvent
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		var e models.ActionEvent
		if err := json.Unmarshal(iter.Value(), &e); err == nil {
			out = append(out, e)
		}
	}
	if len(limit) > 0 && limit[0] > 0 && limit[0] < len(out) {
		out = out[len(out)-limit[0]:]
	}
	return out, iter.Error()
}

// PurgeActionsBefore deletes action-log entries older than cutoff across
// all chats and returns the number removed. Entry age comes from the key
// timestamp, so records never need to be parsed.
func PurgeActionsBefore(cutoff time.Time) (int, error) {
	if db == nil {
		return 0, notOpened()
	}
	keys, err := keysWithPrefix("log:")
	if err != nil {
		return 0, err
	}
	cutoffNS := cutoff.UTC().UnixNano()
	removed := 0
	for _, k := range keys {
		// log:<chat>:<ts padded>-<seq>
		i := strings.LastIndex(k, ":")
		if i < 0 {
			continue
		}
		tsPart := k[i+1:]
		if j := strings.IndexByte(tsPart, '-'); j > 0 {
			tsPart = tsPart[:j]
		}
		ts, err := strconv.ParseInt(tsPart, 10, 64)
		if err != nil {
			continue
		}
		if ts >= cutoffNS {
			continue
		}
		if err := db.Delete([]byte(k), pebble.Sync); err != nil {
			return removed, err
		}
		removed++
	}
	if removed > 0 {
		metricActionPurges.Add(float64(removed))
		logger.Info("action_log_purged", "removed", removed, "cutoff", cutoff.UTC().Format(time.RFC3339))
	}
	return removed, nil
}

func keysWithPrefix(prefix string) ([]string, error) {
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	pfx := []byte(prefix)
	var out []string
	for iter.SeekGE(pfx); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), pfx) {
			break
		}
		out = append(out, string(append([]byte(nil), iter.Key()...)))
	}
	return out, iter.Error()
}
