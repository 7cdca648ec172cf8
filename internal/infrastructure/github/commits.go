package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	gh "github.com/google/go-github/v45/github"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const commitsPerRepo = 50

// Commit 导入日记的一条提交
type Commit struct {
	SHA       string    `json:"sha"`
	Message   string    `json:"message"`
	Repo      string    `json:"repo"`
	Timestamp time.Time `json:"timestamp"`
	URL       string    `json:"url"`
}

// DayCommits 某一天的提交汇总
type DayCommits struct {
	Date         string   `json:"date"`
	Username     string   `json:"username"`
	TotalCommits int      `json:"totalCommits"`
	Repositories []string `json:"repositories"`
	Commits      []Commit `json:"commits"`
}

// Client 使用用户 token 访问 GitHub API
type Client struct {
	baseURL   *url.URL
	repoLimit int
	logger    *zap.Logger
}

// NewClient 创建客户端。baseURL 为空时使用 api.github.com。
func NewClient(baseURL string, repoLimit int, logger *zap.Logger) (*Client, error) {
	c := &Client{repoLimit: repoLimit, logger: logger}
	if c.repoLimit <= 0 {
		c.repoLimit = 10
	}
	if baseURL != "" {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("parse github base url: %w", err)
		}
		c.baseURL = u
	}
	return c, nil
}

func (c *Client) api(ctx context.Context, token string) *gh.Client {
	var hc *http.Client
	if token != "" {
		hc = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	}
	client := gh.NewClient(hc)
	if c.baseURL != nil {
		client.BaseURL = c.baseURL
	}
	return client
}

// Login 返回 token 对应的 GitHub 用户名
func (c *Client) Login(ctx context.Context, token string) (string, error) {
	user, _, err := c.api(ctx, token).Users.Get(ctx, "")
	if err != nil {
		return "", fmt.Errorf("get github user: %w", err)
	}
	return user.GetLogin(), nil
}

// CommitsOn 列出 login 在 day 当天（day 所在时区）的提交，按时间倒序。
// 只看最近推送的 repoLimit 个仓库；单个仓库失败会跳过。
func (c *Client) CommitsOn(ctx context.Context, token, login string, day time.Time) (*DayCommits, error) {
	api := c.api(ctx, token)
	since, until := dayWindow(day)

	repos, _, err := api.Repositories.List(ctx, "", &gh.RepositoryListOptions{
		Sort:        "pushed",
		Affiliation: "owner,collaborator",
		ListOptions: gh.ListOptions{PerPage: c.repoLimit},
	})
	if err != nil {
		return nil, fmt.Errorf("list github repositories: %w", err)
	}
	if len(repos) > c.repoLimit {
		repos = repos[:c.repoLimit]
	}

	result := &DayCommits{
		Date:         since.Format("2006-01-02"),
		Username:     login,
		Repositories: []string{},
		Commits:      []Commit{},
	}
	for _, repo := range repos {
		commits, _, err := api.Repositories.ListCommits(ctx, repo.GetOwner().GetLogin(), repo.GetName(), &gh.CommitsListOptions{
			Since:       since,
			Until:       until,
			ListOptions: gh.ListOptions{PerPage: commitsPerRepo},
		})
		if err != nil {
			c.logger.Debug("Skipping repository", zap.String("repo", repo.GetFullName()), zap.Error(err))
			continue
		}

		found := false
		for _, rc := range commits {
			if !authoredBy(rc, login) {
				continue
			}
			found = true
			result.Commits = append(result.Commits, toCommit(rc, repo.GetFullName()))
		}
		if found {
			result.Repositories = append(result.Repositories, repo.GetFullName())
		}
	}

	sort.SliceStable(result.Commits, func(i, j int) bool {
		return result.Commits[i].Timestamp.After(result.Commits[j].Timestamp)
	})
	result.TotalCommits = len(result.Commits)
	return result, nil
}

// dayWindow 返回 day 所在时区当天的首尾时刻，夏令时切换日不一定是 24 小时
func dayWindow(day time.Time) (since, until time.Time) {
	since = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	return since, since.AddDate(0, 0, 1).Add(-time.Second)
}

func authoredBy(rc *gh.RepositoryCommit, login string) bool {
	return strings.EqualFold(rc.GetAuthor().GetLogin(), login) ||
		strings.EqualFold(rc.GetCommitter().GetLogin(), login)
}

func toCommit(rc *gh.RepositoryCommit, repo string) Commit {
	sha := rc.GetSHA()
	if len(sha) > 7 {
		sha = sha[:7]
	}
	msg := strings.SplitN(rc.GetCommit().GetMessage(), "\n", 2)[0]
	if msg == "" {
		msg = "No message"
	}
	return Commit{
		SHA:       sha,
		Message:   msg,
		Repo:      repo,
		Timestamp: rc.GetCommit().GetAuthor().GetDate(),
		URL:       rc.GetHTMLURL(),
	}
}
