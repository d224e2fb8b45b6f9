// Command health-agent runs the conversational health assistant in the
// terminal: a structured consultation mode backed by the interview engine,
// and an open Q&A mode backed by the retrieval pipeline.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	embedderopenai "github.com/sweetpotato0/health-agent/contrib/embedder/openai"
	"github.com/sweetpotato0/health-agent/contrib/provider"
	"github.com/sweetpotato0/health-agent/contrib/tokenizer/tiktoken"
	vectorpg "github.com/sweetpotato0/health-agent/contrib/vector/pg"

	"github.com/sweetpotato0/health-agent/config"
	"github.com/sweetpotato0/health-agent/contrib/vector/inmemory"
	"github.com/sweetpotato0/health-agent/conversation"
	"github.com/sweetpotato0/health-agent/interview"
	"github.com/sweetpotato0/health-agent/memory"
	memorystore "github.com/sweetpotato0/health-agent/memory/store"
	"github.com/sweetpotato0/health-agent/oracle"
	"github.com/sweetpotato0/health-agent/pkg/logging"
	"github.com/sweetpotato0/health-agent/pkg/telemetry"
	"github.com/sweetpotato0/health-agent/retrieval"
	"github.com/sweetpotato0/health-agent/risk"
	"github.com/sweetpotato0/health-agent/session"
	sessionstore "github.com/sweetpotato0/health-agent/session/store"
	"github.com/sweetpotato0/health-agent/tool"
	toolmcp "github.com/sweetpotato0/health-agent/tool/mcp"
	"github.com/sweetpotato0/health-agent/vector"
)

const welcomeBanner = `
╔══════════════════════════════════════════════════════════╗
║              🏥 科普医疗智能助手                          ║
╠══════════════════════════════════════════════════════════╣
║                                                          ║
║   请选择服务模式：                                        ║
║                                                          ║
║   [1] 🩺 个人健康顾问                                    ║
║       • 结构化问诊，记住你的健康档案                      ║
║       • 风险分级评估与个性化建议                          ║
║                                                          ║
║   [2] 📚 医学科普问答                                    ║
║       • 无需登录，直接提问                                ║
║       • 基于医学知识库和网络搜索回答                       ║
║                                                          ║
╚══════════════════════════════════════════════════════════╝
`

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "health-agent: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.WithComponent("cli")

	ctx := context.Background()
	shutdown, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName: "health-agent",
		Disable:     os.Getenv("OTEL_SDK_DISABLED") == "true",
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer shutdown(context.Background())

	if cfg.APIKey == "" {
		fmt.Println("⚠️ 提示: 未配置 API Key，智能分析与检索功能将不可用")
	}
	client, err := provider.New(cfg.Provider, provider.Settings{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
	})
	if err != nil {
		return err
	}
	client = oracle.Chain(client,
		oracle.WithLogging(logging.WithComponent("oracle")),
		oracle.WithTimeout(90*time.Second),
		oracle.WithRecovery(),
	)

	store, err := openMemoryStore(cfg)
	if err != nil {
		return fmt.Errorf("open memory store: %w", err)
	}
	defer store.Close()
	gateway := memory.NewGateway(store,
		memory.WithExtractor(client),
		memory.WithReviewQueue(memory.NewReviewQueue(store, logging.WithComponent("review"))),
	)

	sessStore, err := openSessionStore(cfg)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	defer sessStore.Close()
	sessions := session.NewManager(sessStore)

	kb, err := buildKnowledgeBase(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("build knowledge base: %w", err)
	}

	registry := tool.NewRegistry()
	if err := tool.RegisterHealthTools(registry); err != nil {
		return err
	}
	if closer, err := attachMCPTools(ctx, registry, logger); err != nil {
		logger.Warn("mcp tools unavailable", "error", err)
	} else if closer != nil {
		defer closer()
	}

	machineOpts := []conversation.MachineOption{
		conversation.WithToolInvoker(tool.NewInvoker(registry, client, logging.WithComponent("tool"))),
		conversation.WithMemoryGateway(gateway),
		conversation.WithHistoryCompactor(conversation.NewCompactor(client)),
		conversation.WithMaxRetrievalLoops(cfg.MaxLoops),
		conversation.WithTopK(cfg.TopK),
	}
	if cfg.WebSearch {
		machineOpts = append(machineOpts, conversation.WithWebSearch(retrieval.NewDuckDuckGo()))
	}
	if tok, err := tiktoken.New(envOr("TOKENIZER_ENCODING", "cl100k_base")); err == nil {
		machineOpts = append(machineOpts, conversation.WithTokenizer(tok))
	} else {
		logger.Warn("tiktoken encoding unavailable, using heuristic token counts", "error", err)
	}
	machine := conversation.NewMachine(client, kb, machineOpts...)

	engine := interview.NewEngine(gateway,
		risk.New(risk.WithOracle(client)),
		interview.WithOracle(client),
		interview.WithSessionStore(sessStore),
		interview.WithMaxFollowups(cfg.MaxFollowups),
	)

	app := &cli{
		in:       bufio.NewScanner(os.Stdin),
		machine:  machine,
		engine:   engine,
		memory:   gateway,
		sessions: sessions,
	}
	app.mainLoop(ctx)
	return nil
}

// openMemoryStore builds the profile/record store selected by the config.
func openMemoryStore(cfg *config.Config) (memory.Store, error) {
	switch cfg.MemoryBackend {
	case config.MemoryBackendMemory:
		return memorystore.NewMemoryStore(), nil
	case config.MemoryBackendSQLite:
		return memorystore.NewSQLiteStore(memorystore.SQLitePathFromEnv())
	case config.MemoryBackendPostgres:
		return memorystore.NewPostgresStore(memorystore.PostgresConfigFromEnv())
	case config.MemoryBackendMongo:
		return memorystore.NewMongoStore(memorystore.MongoConfigFromEnv())
	default:
		return nil, fmt.Errorf("unknown memory backend %q", cfg.MemoryBackend)
	}
}

func openSessionStore(cfg *config.Config) (session.Store, error) {
	if cfg.SessionBackend == config.SessionBackendRedis {
		return sessionstore.NewRedisStore(sessionstore.RedisConfigFromEnv())
	}
	return sessionstore.NewMemoryStore(), nil
}

// buildKnowledgeBase indexes the markdown knowledge directory into the
// configured vector store. An unreadable directory is not fatal: the
// retrieval loop degrades to web search and forced synthesis.
func buildKnowledgeBase(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*retrieval.KnowledgeBase, error) {
	embedder := embedderopenai.New(
		envOr("EMBEDDING_API_KEY", envOr("OPENAI_API_KEY", cfg.APIKey)),
		os.Getenv("EMBEDDING_BASE_URL"),
		"",
		envInt("EMBEDDING_DIMENSION", 0),
	)

	var store vector.Store
	if os.Getenv("VECTOR_BACKEND") == "pg" {
		pg := memorystore.PostgresConfigFromEnv()
		pgStore, err := vectorpg.New(&vectorpg.Config{
			Host:      pg.Host,
			Port:      pg.Port,
			User:      pg.User,
			Password:  pg.Password,
			DBName:    pg.DBName,
			SSLMode:   pg.SSLMode,
			Dimension: embedder.Dimension(),
			TableName: "health_documents",
		})
		if err != nil {
			return nil, err
		}
		store = pgStore
	} else {
		store = inmemory.New()
	}

	kb := retrieval.NewKnowledgeBase(store, embedder)
	docs, err := loadKnowledgeDir(cfg.KnowledgeDir)
	if err != nil {
		logger.Warn("knowledge directory not loaded", "dir", cfg.KnowledgeDir, "error", err)
		return kb, nil
	}
	if len(docs) > 0 {
		if err := kb.Ingest(ctx, docs...); err != nil {
			logger.Warn("knowledge ingest failed", "error", err)
		} else {
			logger.Info("knowledge base loaded", "documents", len(docs))
		}
	}
	return kb, nil
}

// loadKnowledgeDir reads every markdown and text file under dir.
func loadKnowledgeDir(dir string) ([]retrieval.Document, error) {
	var docs []retrieval.Document
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".md" && ext != ".txt" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		docs = append(docs, retrieval.Document{
			Title:   strings.TrimSuffix(d.Name(), ext),
			Content: string(data),
			Source:  retrieval.SourceKnowledgeBase,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// attachMCPTools registers tools from an external MCP server when one is
// configured via MCP_ENDPOINT or MCP_COMMAND, and keeps the registry in sync
// when the server announces a changed tool list.
func attachMCPTools(ctx context.Context, registry *tool.Registry, logger *slog.Logger) (func() error, error) {
	endpoint := os.Getenv("MCP_ENDPOINT")
	command := os.Getenv("MCP_COMMAND")
	if endpoint == "" && command == "" {
		return nil, nil
	}
	p, err := toolmcp.NewProvider(ctx, toolmcp.Config{Endpoint: endpoint, Command: command})
	if err != nil {
		return nil, err
	}
	if err := p.Register(ctx, registry); err != nil {
		p.Close()
		return nil, err
	}

	watchCtx, cancel := context.WithCancel(ctx)
	go watchToolChanges(watchCtx, p, registry, logger)
	return func() error {
		cancel()
		return p.Close()
	}, nil
}

// toolSource is the slice of the MCP provider the refresh loop needs.
type toolSource interface {
	Register(ctx context.Context, registry *tool.Registry) error
	ToolsChanged() <-chan struct{}
}

// watchToolChanges re-runs Register each time the server signals a tool list
// change. Registration goes through Upsert, so repeats are idempotent. The
// loop ends when the context is cancelled or the signal channel closes.
func watchToolChanges(ctx context.Context, src toolSource, registry *tool.Registry, logger *slog.Logger) {
	changes := src.ToolsChanged()
	if changes == nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-changes:
			if !ok {
				return
			}
			if err := src.Register(ctx, registry); err != nil {
				logger.Warn("mcp tool refresh failed", "error", err)
			}
		}
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// cli drives the terminal loop over the two assistant modes.
type cli struct {
	in       *bufio.Scanner
	machine  *conversation.Machine
	engine   *interview.Engine
	memory   *memory.Gateway
	sessions *session.Manager
}

func (c *cli) mainLoop(ctx context.Context) {
	for {
		fmt.Printf("%s\n", welcomeBanner)
		choice, ok := c.prompt("请选择 [1/2] (q退出): ")
		if !ok {
			return
		}
		switch strings.ToLower(choice) {
		case "1":
			if c.runAdvisor(ctx) {
				return
			}
		case "2":
			if c.runScienceQA(ctx) {
				return
			}
		case "q", "quit", "exit":
			fmt.Println("\n👋 再见！")
			return
		default:
			fmt.Println("\n⚠️ 请输入 1 或 2")
		}
	}
}

// prompt reads one trimmed line; ok is false on EOF.
func (c *cli) prompt(label string) (string, bool) {
	fmt.Print(label)
	if !c.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(c.in.Text()), true
}

// runAdvisor is the structured-consultation mode: login, interview, risk
// assessment, then a free advisor chat with the dossier loaded. Returns
// true when the whole program should exit.
func (c *cli) runAdvisor(ctx context.Context) bool {
	fmt.Println("\n" + strings.Repeat("=", 50))
	fmt.Println("🏥 智能健康咨询 - 医疗建议模式")
	fmt.Println(strings.Repeat("=", 50))
	fmt.Println("📋 本服务将通过结构化问诊收集您的健康信息")
	fmt.Println("⚠️  本服务仅供参考，不能替代医生诊断")

	user := c.login(ctx)
	if user == nil {
		return false
	}

	iv := c.runInterview(ctx, user)
	if iv == nil {
		return false
	}

	if iv.Halted() {
		fmt.Println("\n" + strings.Repeat("!", 50))
		fmt.Println("本次咨询已结束，请立即就医。")
		fmt.Println(strings.Repeat("!", 50))
		return false
	}
	c.printAdvice(ctx, user.ID, iv)

	return c.chatLoop(ctx, user.ID, advisorHelp())
}

func advisorHelp() string {
	line := strings.Repeat("━", 58)
	return fmt.Sprintf(`
%s
  🩺 健康顾问模式

  /p 查看档案 | /r 确认待审核信息 | /c 清空档案
  /id 查看ID | /q 返回主菜单 | /qq 退出程序
%s
`, line, line)
}

// login resolves an identifier to a user account, creating one on first
// visit. A nil return means the user backed out.
func (c *cli) login(ctx context.Context) *memory.User {
	fmt.Println("\n【第一步：用户识别】")
	for {
		id, ok := c.prompt("请输入您的手机号或ID（输入q退出）：")
		if !ok || strings.EqualFold(id, "q") {
			return nil
		}
		user, isNew, err := c.memory.Identify(ctx, id)
		if err != nil {
			fmt.Printf("⚠️  %v\n", err)
			continue
		}
		if isNew {
			fmt.Printf("\n👋 欢迎新用户！您的档案已创建。\n   用户ID: %s...\n", user.ID[:8])
		} else {
			fmt.Printf("\n👋 欢迎回来！\n   用户ID: %s...\n   上次访问: %s\n",
				user.ID[:8], user.LastActive.Format("2006-01-02 15:04"))
		}
		return user
	}
}

// runInterview walks the user through the staged questions until the
// engine stops asking. A nil return means the user aborted mid-way.
func (c *cli) runInterview(ctx context.Context, user *memory.User) *interview.Interview {
	iv, err := c.engine.Start(ctx, user.ID)
	if err != nil {
		fmt.Printf("⚠️  无法开始问诊: %v\n", err)
		return nil
	}
	if p := iv.Profile(); p.Complete() {
		fmt.Println("\n📋 您的基础信息：")
		fmt.Printf("   性别: %s / 年龄: %d岁 / 身高: %.0fcm / 体重: %.0fkg\n",
			p.Gender, p.Age, p.HeightCM, p.WeightKG)
	}

	count := 0
	for !iv.Done() {
		q := c.engine.CurrentQuestion(iv)
		if q == nil {
			break
		}
		count++
		printQuestion(q, count)

		answer, ok := c.prompt("您的回答：")
		if !ok || strings.EqualFold(answer, "q") {
			fmt.Println("\n⚠️  问诊已中断，您的信息已保存。")
			return nil
		}
		if answer == "" {
			count--
			continue
		}

		reply, err := c.engine.ProcessAnswer(ctx, iv, answer)
		if err != nil {
			fmt.Printf("⚠️  %v\n", err)
			return nil
		}
		if reply.Message != "" {
			fmt.Println("\n" + reply.Message)
		}
		if !reply.Continue {
			break
		}
	}
	return iv
}

func printQuestion(q *interview.Question, index int) {
	fmt.Printf("\n【问题 %d】\n🤖 %s\n", index, q.Prompt)
	if len(q.Options) > 0 {
		fmt.Println()
		for i, opt := range q.Options {
			fmt.Printf("   %d. %s\n", i+1, opt)
		}
	}
	if q.Placeholder != "" {
		fmt.Printf("   💡 示例：%s\n", q.Placeholder)
	}
	fmt.Println()
}

// printAdvice pipes the finished interview through the retrieval pipeline
// to produce situation-specific guidance.
func (c *cli) printAdvice(ctx context.Context, userID string, iv *interview.Interview) {
	summary := iv.Summary()
	fmt.Println("\n" + strings.Repeat("=", 50))
	fmt.Println("📊 【评估结果】")
	fmt.Println(strings.Repeat("=", 50))
	fmt.Printf("   主诉: %s\n   风险等级: %s\n", summary.ChiefComplaint, summary.RiskLevel)

	if summary.RiskLevel == risk.LevelMedium.String() {
		confirm, ok := c.prompt("\n是否需要一些初步的健康建议？(y/n): ")
		if !ok || !strings.EqualFold(confirm, "y") {
			return
		}
	}
	fmt.Println("\n🔍 正在根据您的情况生成建议...")

	sess, err := c.sessions.Open(ctx, newSessionID(userID), userID)
	if err != nil {
		fmt.Printf("⚠️  生成建议时出错: %v\n", err)
		return
	}
	answer, err := c.machine.Run(ctx, sess, summary.AdviceQuery())
	if err != nil {
		fmt.Printf("⚠️  生成建议时出错: %v\n", err)
		return
	}
	fmt.Println("\n💡 健康建议：")
	fmt.Println(strings.Repeat("-", 40))
	fmt.Println(answer)
	fmt.Println(strings.Repeat("-", 40))
	c.sessions.Save(ctx, sess)
}

// runScienceQA is the anonymous open-question mode. Returns true when the
// whole program should exit.
func (c *cli) runScienceQA(ctx context.Context) bool {
	line := strings.Repeat("━", 58)
	fmt.Printf(`
%s
  📚 医学科普问答

  直接输入问题即可
  /q 返回主菜单 | /qq 退出程序

  示例：什么是二区训练？/ 如何预防糖尿病？
%s
`, line, line)
	return c.chatLoop(ctx, memory.AnonymousUserID, "")
}

// chatLoop reads questions and prints pipeline answers until the user
// leaves. Commands are handled locally and never reach the machine.
func (c *cli) chatLoop(ctx context.Context, userID, banner string) bool {
	if banner != "" {
		fmt.Println(banner)
	}
	sess, err := c.sessions.Open(ctx, newSessionID(userID), userID)
	if err != nil {
		fmt.Printf("⚠️  %v\n", err)
		return false
	}
	defer c.sessions.Close(ctx, sess)

	for {
		input, ok := c.prompt("\n👉 ")
		if !ok {
			return true
		}
		switch {
		case input == "":
			continue
		case input == "/qq":
			fmt.Println("\n👋 再见！")
			return true
		case input == "/q" || strings.EqualFold(input, "q"):
			if !memory.IsAnonymous(userID) {
				fmt.Printf("\n📋 已保存，你的ID: %s\n", userID)
			}
			return false
		case input == "/id":
			fmt.Printf("\n🆔 %s\n", userID)
			continue
		case input == "/p":
			c.showProfile(ctx, userID)
			continue
		case input == "/r":
			c.reviewPending(ctx, userID)
			continue
		case input == "/c":
			if confirm, ok := c.prompt("⚠️ 确定清空？(y/n): "); ok && strings.EqualFold(confirm, "y") {
				if err := c.memory.ClearRecords(ctx, userID); err != nil {
					fmt.Printf("⚠️  %v\n", err)
				} else {
					fmt.Println("  ✓ 已清空")
				}
			}
			continue
		}

		answer, err := c.machine.Run(ctx, sess, input)
		if err != nil {
			fmt.Printf("\n❌ 出错: %v\n", err)
			continue
		}
		fmt.Println("\n" + answer)
		c.sessions.Save(ctx, sess)
		c.pendingHint(userID)
	}
}

// pendingHint nudges the user when extracted facts are waiting for review.
// Allergy and medication facts never reach the profile without confirmation,
// so an unreviewed queue means the dossier is silently incomplete.
func (c *cli) pendingHint(userID string) {
	queue := c.memory.Review()
	if queue == nil || memory.IsAnonymous(userID) {
		return
	}
	if n := len(queue.Pending(userID)); n > 0 {
		fmt.Printf("\n📝 有 %d 条健康信息待确认，输入 /r 查看\n", n)
	}
}

// reviewPending walks the user's queued health facts one by one, committing
// or discarding each. This is the only path a high-risk fact (过敏信息,
// 用药情况) takes into the stored profile.
func (c *cli) reviewPending(ctx context.Context, userID string) {
	queue := c.memory.Review()
	if queue == nil || memory.IsAnonymous(userID) {
		fmt.Println("\n📋 没有待确认的信息。")
		return
	}
	pending := queue.Pending(userID)
	if len(pending) == 0 {
		fmt.Println("\n📋 没有待确认的信息。")
		return
	}

	fmt.Printf("\n📋 有 %d 条健康信息待确认：\n", len(pending))
	for _, req := range pending {
		answer, ok := c.prompt(fmt.Sprintf("  %s 保存到档案？(y/n/回车跳过): ", req.Title))
		if !ok {
			return
		}
		switch strings.ToLower(answer) {
		case "y":
			if err := queue.Approve(ctx, req.ID); err != nil {
				fmt.Printf("  ⚠️  %v\n", err)
			} else {
				fmt.Println("  ✓ 已保存")
			}
		case "n":
			if err := queue.Reject(ctx, req.ID); err != nil {
				fmt.Printf("  ⚠️  %v\n", err)
			} else {
				fmt.Println("  ✗ 已丢弃")
			}
		}
	}
}

func (c *cli) showProfile(ctx context.Context, userID string) {
	if memory.IsAnonymous(userID) {
		fmt.Println("\n📋 匿名模式没有健康档案。")
		return
	}
	profile, err := c.memory.Profile(ctx, userID)
	if err != nil {
		fmt.Printf("⚠️  %v\n", err)
		return
	}
	records, err := c.memory.Records(ctx, userID)
	if err != nil {
		fmt.Printf("⚠️  %v\n", err)
		return
	}
	if profile == nil && len(records) == 0 {
		fmt.Println("\n📋 健康档案为空，告诉我你的身高体重、过敏史等信息，我会记住。")
		return
	}
	fmt.Println("\n" + memory.FormatMarkdown(nil, profile, records, nil))
}

func newSessionID(userID string) string {
	return fmt.Sprintf("%s_%s", userID, uuid.NewString()[:8])
}
