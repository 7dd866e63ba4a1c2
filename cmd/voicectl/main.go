package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/iabetor/voicearena/internal/arena"
	"github.com/iabetor/voicearena/internal/audio"
	"github.com/iabetor/voicearena/internal/config"
	"github.com/iabetor/voicearena/internal/database"
	"github.com/iabetor/voicearena/internal/logger"
	"github.com/iabetor/voicearena/internal/store"
)

func main() {
	configPath := flag.String("config", "configs/voicearena.yaml", "配置文件路径")
	verbose := flag.Bool("v", false, "输出调试日志")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}
	level := "warn"
	if *verbose {
		level = "debug"
	}
	if err := logger.Init(logger.Config{Level: level, Format: "console"}); err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if args[0] == "cache" {
		cmdCache(cfg)
		return
	}

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "打开数据库失败: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		fmt.Fprintf(os.Stderr, "数据库迁移失败: %v\n", err)
		os.Exit(1)
	}
	st := store.New(db, cfg.Arena.InitialRating)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	var cmdErr error
	switch args[0] {
	case "voices":
		cmdErr = cmdVoices(ctx, st)
	case "voice-add":
		if len(args) < 4 {
			usageExit("voicectl voice-add <provider> <voice_id> <名称> [描述]")
		}
		cmdErr = cmdVoiceAdd(ctx, st, args[1], args[2], args[3], strings.Join(args[4:], " "))
	case "voice-activate", "voice-deactivate":
		if len(args) < 2 {
			usageExit("voicectl " + args[0] + " <id>")
		}
		cmdErr = cmdVoiceActive(ctx, st, args[1], args[0] == "voice-activate")
	case "voice-delete":
		if len(args) < 2 {
			usageExit("voicectl voice-delete <id>")
		}
		cmdErr = st.DeleteVoice(ctx, args[1])
	case "scripts":
		cmdErr = cmdScripts(ctx, st)
	case "script-add":
		if len(args) < 3 {
			usageExit("voicectl script-add <标题> <内容> [分类]")
		}
		category := ""
		if len(args) > 3 {
			category = args[3]
		}
		cmdErr = cmdScriptAdd(ctx, st, args[1], args[2], category)
	case "script-delete":
		if len(args) < 2 {
			usageExit("voicectl script-delete <id>")
		}
		cmdErr = st.DeleteScript(ctx, args[1])
	case "leaderboard":
		cmdErr = cmdLeaderboard(ctx, st)
	case "recompute":
		cmdErr = cmdRecompute(ctx, st)
	default:
		fmt.Fprintf(os.Stderr, "未知命令: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}

	if cmdErr != nil {
		fmt.Fprintf(os.Stderr, "%s 失败: %v\n", args[0], cmdErr)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "VoiceArena 管理工具")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "用法: voicectl [-config <path>] [-v] <command> [args]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "命令:")
	fmt.Fprintln(os.Stderr, "  voices                                   列出所有语音")
	fmt.Fprintln(os.Stderr, "  voice-add <provider> <voice_id> <名称>    添加语音")
	fmt.Fprintln(os.Stderr, "  voice-activate <id>                      启用语音")
	fmt.Fprintln(os.Stderr, "  voice-deactivate <id>                    停用语音")
	fmt.Fprintln(os.Stderr, "  voice-delete <id>                        删除语音及其评分和对比记录")
	fmt.Fprintln(os.Stderr, "  scripts                                  列出所有脚本")
	fmt.Fprintln(os.Stderr, "  script-add <标题> <内容> [分类]            添加脚本")
	fmt.Fprintln(os.Stderr, "  script-delete <id>                       删除脚本及其对比记录")
	fmt.Fprintln(os.Stderr, "  leaderboard                              显示排行榜")
	fmt.Fprintln(os.Stderr, "  recompute                                按对比记录重算全部评分")
	fmt.Fprintln(os.Stderr, "  cache                                    列出音频缓存")
}

func usageExit(usage string) {
	fmt.Fprintln(os.Stderr, "用法: "+usage)
	os.Exit(1)
}

func newTable() *tabwriter.Writer {
	return tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
}

func cmdVoices(ctx context.Context, st *store.Store) error {
	voices, err := st.ListVoices(ctx)
	if err != nil {
		return err
	}
	if len(voices) == 0 {
		fmt.Println("暂无语音")
		return nil
	}
	w := newTable()
	fmt.Fprintln(w, "ID\tPROVIDER\tVOICE_ID\tNAME\tACTIVE\tRATING")
	for _, v := range voices {
		rating := "-"
		if v.Rating != nil {
			rating = fmt.Sprintf("%.2f", *v.Rating)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%v\t%s\n", v.ID, v.Provider, v.VoiceID, v.Name, v.IsActive, rating)
	}
	return w.Flush()
}

func cmdVoiceAdd(ctx context.Context, st *store.Store, provider, voiceID, name, desc string) error {
	v := &store.Voice{Provider: provider, VoiceID: voiceID, Name: name, Description: desc, IsActive: true}
	if err := st.CreateVoice(ctx, v); err != nil {
		return err
	}
	fmt.Printf("已添加语音 %s (id=%s)\n", v.Name, v.ID)
	return nil
}

func cmdVoiceActive(ctx context.Context, st *store.Store, id string, active bool) error {
	v, err := st.SetVoiceActive(ctx, id, active)
	if err != nil {
		return err
	}
	state := "停用"
	if v.IsActive {
		state = "启用"
	}
	fmt.Printf("语音 %s 已%s\n", v.Name, state)
	return nil
}

func cmdScripts(ctx context.Context, st *store.Store) error {
	scripts, err := st.ListScripts(ctx)
	if err != nil {
		return err
	}
	if len(scripts) == 0 {
		fmt.Println("暂无脚本")
		return nil
	}
	w := newTable()
	fmt.Fprintln(w, "ID\tCATEGORY\tTITLE\tCONTENT")
	for _, sc := range scripts {
		content := []rune(sc.Content)
		if len(content) > 40 {
			content = append(content[:40], '…')
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", sc.ID, sc.Category, sc.Title, string(content))
	}
	return w.Flush()
}

func cmdScriptAdd(ctx context.Context, st *store.Store, title, content, category string) error {
	sc := &store.Script{Title: title, Content: content, Category: category}
	if err := st.CreateScript(ctx, sc); err != nil {
		return err
	}
	fmt.Printf("已添加脚本 %s (id=%s)\n", sc.Title, sc.ID)
	return nil
}

func cmdLeaderboard(ctx context.Context, st *store.Store) error {
	entries, err := st.Leaderboard(ctx)
	if err != nil {
		return err
	}
	w := newTable()
	fmt.Fprintln(w, "#\tNAME\tPROVIDER\tRATING\tW\tL\tT\tACTIVE")
	for _, e := range entries {
		fmt.Fprintf(w, "%d\t%s\t%s\t%.2f\t%d\t%d\t%d\t%v\n",
			e.Rank, e.Voice.Name, e.Voice.Provider, e.Score, e.Wins, e.Losses, e.Ties, e.Voice.IsActive)
	}
	return w.Flush()
}

// cmdRecompute 用对比记录从初始分重放出全部评分并覆盖写入。
func cmdRecompute(ctx context.Context, st *store.Store) error {
	before, err := st.ListVoices(ctx)
	if err != nil {
		return err
	}
	scores, err := arena.Recompute(ctx, st)
	if err != nil {
		return err
	}

	w := newTable()
	fmt.Fprintln(w, "NAME\tBEFORE\tAFTER")
	for _, v := range before {
		old := 0.0
		if v.Rating != nil {
			old = *v.Rating
		}
		fmt.Fprintf(w, "%s\t%.2f\t%.2f\n", v.Name, old, scores[v.ID])
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("已重算 %d 个语音的评分\n", len(scores))
	return nil
}

func cmdCache(cfg *config.Config) {
	if cfg.Cache.Backend != "file" {
		fmt.Printf("缓存后端为 %s，没有可列出的持久化条目\n", cfg.Cache.Backend)
		return
	}
	fs, err := audio.NewFileStore(cfg.Cache.Dir, cfg.Server.PublicURL+"/audio")
	if err != nil {
		fmt.Fprintf(os.Stderr, "打开音频缓存失败: %v\n", err)
		os.Exit(1)
	}
	entries, err := fs.List(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "读取音频缓存失败: %v\n", err)
		os.Exit(1)
	}
	if len(entries) == 0 {
		fmt.Println("音频缓存为空")
		return
	}

	var total int64
	byVoice := make(map[string]int)
	w := newTable()
	fmt.Fprintln(w, "KEY\tTYPE\tSIZE\tDURATION\tCACHED_AT")
	for _, e := range entries {
		total += e.Size
		if parts := strings.SplitN(e.Key, "/", 4); len(parts) == 4 {
			byVoice[parts[1]+"/"+parts[2]]++
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%v\t%s\n", e.Key, e.ContentType, e.Size,
			time.Duration(e.DurationMs)*time.Millisecond, e.CachedAt)
	}
	w.Flush()

	voices := make([]string, 0, len(byVoice))
	for v := range byVoice {
		voices = append(voices, v)
	}
	sort.Strings(voices)
	fmt.Printf("\n共 %d 条，%.1f MB，涉及 %d 个语音 (%s)\n",
		len(entries), float64(total)/(1<<20), len(voices), fs.Dir())
}
