package repository

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"hobby_forum/internal/domain/forum/model"
	baseModel "hobby_forum/pkg/model"
)

// family 一个帖子及其评论、投票，是内存实现的加锁单位
type family struct {
	mu       sync.RWMutex
	post     *model.Post                // 帖子删除后为 nil
	view     atomic.Pointer[model.Post] // 最近一次提交的帖子，读路径不加 family 锁
	comments map[string]*model.Comment
	votes    map[string]*model.Vote
	byVoter  map[voteKey]string // (用户, 目标) -> vote id
}

type voteKey struct {
	userID string
	target model.Target
}

func newFamily(post *model.Post) *family {
	return &family{
		post:     post,
		comments: make(map[string]*model.Comment),
		votes:    make(map[string]*model.Vote),
		byVoter:  make(map[voteKey]string),
	}
}

// publish 在持有写锁时发布当前帖子，帖子值只整体替换，可直接共享指针
func (f *family) publish() {
	f.view.Store(f.post)
}

// memoryRepository 进程内实现，用于开发环境与测试
// 写事务持有所属 family 的写锁直到提交或回滚，回滚按 undo 日志逆序恢复
type memoryRepository struct {
	mu          sync.RWMutex
	families    map[string]*family // post id -> family
	commentPost map[string]string  // comment id -> post id
}

// NewMemoryRepository 创建内存实现
func NewMemoryRepository() ForumRepository {
	return &memoryRepository{
		families:    make(map[string]*family),
		commentPost: make(map[string]string),
	}
}

func (r *memoryRepository) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &memoryTx{repo: r}
	defer tx.release()

	if err := fn(tx); err != nil {
		tx.rollback()
		return err
	}
	// 提交前 ctx 已结束则整体放弃
	if err := ctx.Err(); err != nil {
		tx.rollback()
		return err
	}
	tx.commit()
	return nil
}

func (r *memoryRepository) lookup(postID string) *family {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.families[postID]
}

func (r *memoryRepository) postOf(commentID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.commentPost[commentID]
	return id, ok
}

func (r *memoryRepository) GetPost(ctx context.Context, id string) (*model.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f := r.lookup(id)
	if f == nil {
		return nil, ErrNotFound
	}
	post := f.view.Load()
	if post == nil {
		return nil, ErrNotFound
	}
	p := *post
	return &p, nil
}

func (r *memoryRepository) GetComment(ctx context.Context, id string) (*model.Comment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	postID, ok := r.postOf(id)
	if !ok {
		return nil, ErrNotFound
	}
	f := r.lookup(postID)
	if f == nil {
		return nil, ErrNotFound
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	c, ok := f.comments[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *memoryRepository) ListComments(ctx context.Context, postID string) ([]model.Comment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f := r.lookup(postID)
	if f == nil {
		return nil, nil
	}
	f.mu.RLock()
	out := make([]model.Comment, 0, len(f.comments))
	for _, c := range f.comments {
		out = append(out, *c)
	}
	f.mu.RUnlock()

	slices.SortFunc(out, func(a, b model.Comment) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out, nil
}

// snapshot 复制所有满足过滤条件的帖子
// 只读取已提交的 view，进行中的写事务不会阻塞 feed 读取
func (r *memoryRepository) snapshot(ctx context.Context, filter model.FeedFilter, pinned bool) ([]model.Post, error) {
	r.mu.RLock()
	fams := slices.Collect(maps.Values(r.families))
	r.mu.RUnlock()

	var out []model.Post
	for _, f := range fams {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := f.view.Load()
		if p != nil && p.IsPinned == pinned && filter.Matches(p) {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *memoryRepository) ListPinned(ctx context.Context, filter model.FeedFilter) ([]model.Post, error) {
	posts, err := r.snapshot(ctx, filter, true)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(posts, func(a, b model.Post) int {
		if model.PinnedPrecedes(&a, &b) {
			return -1
		}
		if model.PinnedPrecedes(&b, &a) {
			return 1
		}
		return 0
	})
	return posts, nil
}

func (r *memoryRepository) ListFeed(ctx context.Context, q model.FeedQuery) ([]model.Post, error) {
	posts, err := r.snapshot(ctx, q.Filter, false)
	if err != nil {
		return nil, err
	}

	if q.After != nil {
		posts = slices.DeleteFunc(posts, func(p model.Post) bool {
			// 保留严格位于游标之后的帖子
			return !model.Precedes(q.After.Key, q.After.ID, model.SortKey(&p, q.Sort), p.ID)
		})
	}

	slices.SortFunc(posts, func(a, b model.Post) int {
		ka, kb := model.SortKey(&a, q.Sort), model.SortKey(&b, q.Sort)
		if model.Precedes(ka, a.ID, kb, b.ID) {
			return -1
		}
		if model.Precedes(kb, b.ID, ka, a.ID) {
			return 1
		}
		return 0
	})

	if q.Limit > 0 && len(posts) > q.Limit {
		posts = posts[:q.Limit]
	}
	return posts, nil
}

// memoryTx 事务：按需锁定 family，记录 undo 日志
// 第一个 family 阻塞加锁；已持有 family 时再锁其他 family 只尝试一次，
// 失败返回 ErrConflict 由上层重试，因此跨 family 的事务不会互相等待
type memoryTx struct {
	repo   *memoryRepository
	locked []*family
	undo   []func()
}

func (tx *memoryTx) lock(f *family) error {
	if slices.Contains(tx.locked, f) {
		return nil
	}
	if len(tx.locked) == 0 {
		f.mu.Lock()
	} else if !f.mu.TryLock() {
		return ErrConflict
	}
	tx.locked = append(tx.locked, f)
	return nil
}

// commit 发布本事务写过的帖子
func (tx *memoryTx) commit() {
	for _, f := range tx.locked {
		f.publish()
	}
	tx.undo = nil
}

func (tx *memoryTx) release() {
	for i := len(tx.locked) - 1; i >= 0; i-- {
		tx.locked[i].mu.Unlock()
	}
	tx.locked = nil
}

func (tx *memoryTx) rollback() {
	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i]()
	}
	tx.undo = nil
}

func (tx *memoryTx) onRollback(fn func()) {
	tx.undo = append(tx.undo, fn)
}

// family 锁定帖子所属 family
func (tx *memoryTx) family(postID string) (*family, error) {
	f := tx.repo.lookup(postID)
	if f == nil {
		return nil, ErrNotFound
	}
	if err := tx.lock(f); err != nil {
		return nil, err
	}
	if f.post == nil {
		return nil, ErrNotFound
	}
	return f, nil
}

// commentFamily 锁定评论所属 family 并返回评论
func (tx *memoryTx) commentFamily(commentID string) (*family, *model.Comment, error) {
	postID, ok := tx.repo.postOf(commentID)
	if !ok {
		return nil, nil, ErrNotFound
	}
	f, err := tx.family(postID)
	if err != nil {
		return nil, nil, err
	}
	c, ok := f.comments[commentID]
	if !ok {
		return nil, nil, ErrNotFound
	}
	return f, c, nil
}

// setPost 整体替换帖子，旧值进入 undo 日志
func (tx *memoryTx) setPost(f *family, p *model.Post) {
	old := f.post
	f.post = p
	tx.onRollback(func() { f.post = old })
}

func (tx *memoryTx) setComment(f *family, c *model.Comment) {
	old := f.comments[c.ID]
	f.comments[c.ID] = c
	tx.onRollback(func() { f.comments[c.ID] = old })
}

func (tx *memoryTx) GetPost(id string) (*model.Post, error) {
	f, err := tx.family(id)
	if err != nil {
		return nil, err
	}
	p := *f.post
	return &p, nil
}

// LockPost family 已被写锁定，与 GetPost 等价
func (tx *memoryTx) LockPost(id string) (*model.Post, error) {
	return tx.GetPost(id)
}

func (tx *memoryTx) GetComment(id string) (*model.Comment, error) {
	_, c, err := tx.commentFamily(id)
	if err != nil {
		return nil, err
	}
	cp := *c
	return &cp, nil
}

// GetCommentInPost 只在 postID 的 family 内查找，评论不属于该帖子时视为不存在
func (tx *memoryTx) GetCommentInPost(postID, commentID string) (*model.Comment, error) {
	f, err := tx.family(postID)
	if err != nil {
		return nil, err
	}
	c, ok := f.comments[commentID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (tx *memoryTx) InsertPost(post *model.Post) error {
	if post.ID == "" {
		post.ID = baseModel.NewID()
	}
	p := *post
	f := newFamily(&p)
	f.mu.Lock()
	tx.locked = append(tx.locked, f)

	tx.repo.mu.Lock()
	defer tx.repo.mu.Unlock()
	if _, exists := tx.repo.families[post.ID]; exists {
		return ErrConflict
	}
	tx.repo.families[post.ID] = f
	tx.onRollback(func() {
		tx.repo.mu.Lock()
		delete(tx.repo.families, post.ID)
		tx.repo.mu.Unlock()
	})
	return nil
}

func (tx *memoryTx) DeletePost(id string) (int64, error) {
	f, err := tx.family(id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}

	tx.setPost(f, nil)

	commentIDs := slices.Collect(maps.Keys(f.comments))
	tx.repo.mu.Lock()
	delete(tx.repo.families, id)
	for _, cid := range commentIDs {
		delete(tx.repo.commentPost, cid)
	}
	tx.repo.mu.Unlock()

	tx.onRollback(func() {
		tx.repo.mu.Lock()
		tx.repo.families[id] = f
		for _, cid := range commentIDs {
			tx.repo.commentPost[cid] = id
		}
		tx.repo.mu.Unlock()
	})
	return 1, nil
}

func (tx *memoryTx) SetPostFlags(id string, pinned, locked *bool) (*model.Post, error) {
	f, err := tx.family(id)
	if err != nil {
		return nil, err
	}
	p := *f.post
	if pinned != nil {
		p.IsPinned = *pinned
	}
	if locked != nil {
		p.IsLocked = *locked
	}
	p.UpdatedAt = baseModel.Now()
	tx.setPost(f, &p)

	out := p
	return &out, nil
}

func (tx *memoryTx) SetHotScore(postID string, score float64) error {
	f, err := tx.family(postID)
	if err != nil {
		return err
	}
	p := *f.post
	p.HotScore = score
	tx.setPost(f, &p)
	return nil
}

func (tx *memoryTx) AddCommentCount(postID string, delta int64) (*model.Post, error) {
	f, err := tx.family(postID)
	if err != nil {
		return nil, err
	}
	p := *f.post
	p.CommentCount += delta
	p.UpdatedAt = baseModel.Now()
	tx.setPost(f, &p)

	out := p
	return &out, nil
}

// targetFamily 锁定投票目标所属的 family
func (tx *memoryTx) targetFamily(target model.Target) (*family, error) {
	if target.Type == model.TargetComment {
		f, _, err := tx.commentFamily(target.ID)
		return f, err
	}
	return tx.family(target.ID)
}

func (tx *memoryTx) FindVote(userID string, target model.Target) (*model.Vote, error) {
	f, err := tx.targetFamily(target)
	if err != nil {
		return nil, err
	}
	id, ok := f.byVoter[voteKey{userID: userID, target: target}]
	if !ok {
		return nil, ErrNotFound
	}
	v := *f.votes[id]
	return &v, nil
}

func (tx *memoryTx) InsertVote(vote *model.Vote) error {
	target := vote.TargetOf()
	f, err := tx.targetFamily(target)
	if err != nil {
		// 与外键约束一致：目标不存在即写入冲突
		if errors.Is(err, ErrNotFound) {
			return ErrConflict
		}
		return err
	}
	key := voteKey{userID: vote.UserID, target: target}
	if _, exists := f.byVoter[key]; exists {
		return ErrConflict
	}
	if vote.ID == "" {
		vote.ID = baseModel.NewID()
	}

	v := *vote
	f.votes[v.ID] = &v
	f.byVoter[key] = v.ID
	tx.onRollback(func() {
		delete(f.votes, v.ID)
		delete(f.byVoter, key)
	})
	return nil
}

// voteByID 在已锁定的 family 中查找投票
func (tx *memoryTx) voteByID(id string) (*family, *model.Vote) {
	for _, f := range tx.locked {
		if v, ok := f.votes[id]; ok {
			return f, v
		}
	}
	return nil, nil
}

func (tx *memoryTx) UpdateVoteValue(id string, oldValue, newValue int8) error {
	f, v := tx.voteByID(id)
	if v == nil || v.Value != oldValue {
		return ErrConflict
	}
	next := *v
	next.Value = newValue
	next.UpdatedAt = baseModel.Now()
	f.votes[id] = &next
	tx.onRollback(func() { f.votes[id] = v })
	return nil
}

func (tx *memoryTx) DeleteVote(id string, oldValue int8) error {
	f, v := tx.voteByID(id)
	if v == nil || v.Value != oldValue {
		return ErrConflict
	}
	key := voteKey{userID: v.UserID, target: v.TargetOf()}
	delete(f.votes, id)
	delete(f.byVoter, key)
	tx.onRollback(func() {
		f.votes[id] = v
		f.byVoter[key] = id
	})
	return nil
}

func (tx *memoryTx) AddVoteCounts(target model.Target, upDelta, downDelta int64) (model.Counts, error) {
	if target.Type == model.TargetComment {
		f, c, err := tx.commentFamily(target.ID)
		if err != nil {
			return model.Counts{}, err
		}
		next := *c
		next.UpvoteCount += upDelta
		next.DownvoteCount += downDelta
		tx.setComment(f, &next)
		return model.Counts{UpvoteCount: next.UpvoteCount, DownvoteCount: next.DownvoteCount}, nil
	}

	f, err := tx.family(target.ID)
	if err != nil {
		return model.Counts{}, err
	}
	p := *f.post
	p.UpvoteCount += upDelta
	p.DownvoteCount += downDelta
	tx.setPost(f, &p)
	return model.Counts{UpvoteCount: p.UpvoteCount, DownvoteCount: p.DownvoteCount}, nil
}

func (tx *memoryTx) InsertComment(comment *model.Comment) error {
	f, err := tx.family(comment.PostID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrConflict
		}
		return err
	}
	if comment.ParentID != nil {
		parent, ok := f.comments[*comment.ParentID]
		if !ok || parent.PostID != comment.PostID {
			return ErrConflict
		}
	}
	if comment.ID == "" {
		comment.ID = baseModel.NewID()
	}
	if _, exists := f.comments[comment.ID]; exists {
		return ErrConflict
	}

	c := *comment
	f.comments[c.ID] = &c
	tx.onRollback(func() { delete(f.comments, c.ID) })

	tx.repo.mu.Lock()
	tx.repo.commentPost[c.ID] = c.PostID
	tx.repo.mu.Unlock()
	tx.onRollback(func() {
		tx.repo.mu.Lock()
		delete(tx.repo.commentPost, c.ID)
		tx.repo.mu.Unlock()
	})
	return nil
}

func (tx *memoryTx) DeleteCommentTree(id string) (int64, error) {
	f, root, err := tx.commentFamily(id)
	if err != nil {
		return 0, err
	}

	// 广度优先收集子树
	children := make(map[string][]string, len(f.comments))
	for _, c := range f.comments {
		if c.ParentID != nil {
			children[*c.ParentID] = append(children[*c.ParentID], c.ID)
		}
	}
	tree := []string{root.ID}
	for i := 0; i < len(tree); i++ {
		tree = append(tree, children[tree[i]]...)
	}

	inTree := make(map[string]bool, len(tree))
	for _, cid := range tree {
		inTree[cid] = true
	}

	removedComments := make(map[string]*model.Comment, len(tree))
	for _, cid := range tree {
		removedComments[cid] = f.comments[cid]
		delete(f.comments, cid)
	}

	// 评论上的投票随评论一起删除
	removedVotes := make(map[string]*model.Vote)
	for vid, v := range f.votes {
		if v.CommentID != nil && inTree[*v.CommentID] {
			removedVotes[vid] = v
			delete(f.votes, vid)
			delete(f.byVoter, voteKey{userID: v.UserID, target: v.TargetOf()})
		}
	}

	tx.repo.mu.Lock()
	for _, cid := range tree {
		delete(tx.repo.commentPost, cid)
	}
	tx.repo.mu.Unlock()

	postID := root.PostID
	tx.onRollback(func() {
		for cid, c := range removedComments {
			f.comments[cid] = c
		}
		for vid, v := range removedVotes {
			f.votes[vid] = v
			f.byVoter[voteKey{userID: v.UserID, target: v.TargetOf()}] = vid
		}
		tx.repo.mu.Lock()
		for cid := range removedComments {
			tx.repo.commentPost[cid] = postID
		}
		tx.repo.mu.Unlock()
	})
	return int64(len(tree)), nil
}
