package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"hobby_forum/internal/domain/forum/model"
	"hobby_forum/pkg/utils"

	"golang.org/x/sync/errgroup"
)

var httpClient *http.Client

func init() {
	// 优化 HTTP Client 配置
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 2000
	t.MaxIdleConnsPerHost = 2000
	t.MaxConnsPerHost = 2000
	httpClient = &http.Client{
		Transport: t,
		Timeout:   10 * time.Second,
	}
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type client struct {
	baseURL string
	secret  string
}

func (c *client) token(userID string) (string, error) {
	tok, _, err := utils.GenerateToken(c.secret, userID, model.RoleUser, time.Hour)
	return tok, err
}

func (c *client) call(ctx context.Context, method, path, userID string, body any, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		tok, err := c.token(userID)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("status %d: %s", resp.StatusCode, raw)
	}
	if resp.StatusCode >= 300 || env.Code != 0 {
		return fmt.Errorf("status %d code %d: %s", resp.StatusCode, env.Code, env.Message)
	}
	if out != nil {
		return json.Unmarshal(env.Data, out)
	}
	return nil
}

// finalVote 每个用户的投票序列及其最终结果
// 偶数用户先踩再赞，3 的倍数最后撤销
func finalVote(i int) (sequence []int, final int) {
	if i%2 == 0 {
		sequence = []int{-1, 1}
	} else {
		sequence = []int{1, 1}
	}
	if i%3 == 0 {
		sequence = append(sequence, 0)
	}
	return sequence, sequence[len(sequence)-1]
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080/api/v1", "API base URL")
	users := flag.Int("users", 2000, "number of concurrent voters")
	concurrency := flag.Int("concurrency", 200, "max in-flight users")
	category := flag.String("category", "stress", "category of the test post")
	flag.Parse()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		fmt.Println("JWT_SECRET must be set to the server's signing secret")
		os.Exit(1)
	}
	c := &client{baseURL: *baseURL, secret: secret}
	ctx := context.Background()

	// 1. 创建测试帖子
	var post model.Post
	err := c.call(ctx, http.MethodPost, "/forum/posts", "stress-author", map[string]any{
		"categoryId": *category,
		"postType":   string(model.PostTypeDiscussion),
		"title":      "stress test " + time.Now().Format(time.RFC3339),
	}, &post)
	if err != nil {
		fmt.Printf("创建帖子失败: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("开始压测：%d 个用户并发投票 (PostID: %s)...\n", *users, post.ID)

	// 2. 并发投票
	var requests, failures atomic.Int64
	var wantUp, wantDown int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(*concurrency)
	start := time.Now()

	for i := 1; i <= *users; i++ {
		sequence, final := finalVote(i)
		switch final {
		case 1:
			wantUp++
		case -1:
			wantDown++
		}

		userID := fmt.Sprintf("stress-user-%d", i)
		g.Go(func() error {
			for _, v := range sequence {
				requests.Add(1)
				err := c.call(gctx, http.MethodPost, "/forum/votes", userID, map[string]any{
					"targetType": string(model.TargetPost),
					"targetId":   post.ID,
					"value":      v,
				}, nil)
				if err != nil {
					failures.Add(1)
					return fmt.Errorf("%s: %w", userID, err)
				}
			}
			return nil
		})
	}

	waitErr := g.Wait()
	duration := time.Since(start)

	// 3. 校验计数
	var got model.Post
	if err := c.call(ctx, http.MethodGet, "/forum/posts/"+post.ID, "", nil, &got); err != nil {
		fmt.Printf("读取帖子失败: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("--------------------------------------------------")
	fmt.Printf("压测结束，耗时: %v\n", duration)
	fmt.Printf("总请求数: %d, 失败: %d\n", requests.Load(), failures.Load())
	fmt.Printf("QPS: %.2f\n", float64(requests.Load())/duration.Seconds())
	fmt.Printf("赞: %d (预期: %d)\n", got.UpvoteCount, wantUp)
	fmt.Printf("踩: %d (预期: %d)\n", got.DownvoteCount, wantDown)
	fmt.Printf("热度: %.4f\n", got.HotScore)
	fmt.Println("--------------------------------------------------")

	if waitErr != nil {
		fmt.Printf("首个失败: %v\n", waitErr)
		os.Exit(1)
	}
	if got.UpvoteCount != wantUp || got.DownvoteCount != wantDown {
		fmt.Println("计数不一致")
		os.Exit(1)
	}
}
