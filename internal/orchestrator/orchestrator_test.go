package orchestrator_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"opushelper/internal/images"
	"opushelper/internal/menu"
	"opushelper/internal/orchestrator"
	"opushelper/internal/protocol"
	"opushelper/pkg/domain"
	"opushelper/pkg/errx"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu     sync.Mutex
	s      domain.Settings
	err    error
	loads  int
	resets int
}

func (f *fakeStore) Load(ctx context.Context) (domain.Settings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	if f.err != nil {
		return domain.DefaultSettings(), f.err
	}
	return f.s, nil
}

func (f *fakeStore) Save(ctx context.Context, s domain.Settings) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.s = s
	return nil
}

func (f *fakeStore) Reset(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
	f.s = domain.DefaultSettings()
	return nil
}

type fakeHost struct {
	tabs   []domain.Tab
	opened []string
}

func (f *fakeHost) QueryTabs(ctx context.Context) ([]domain.Tab, error) {
	return f.tabs, nil
}

func (f *fakeHost) GetTab(ctx context.Context, id domain.TabID) (domain.Tab, error) {
	for _, t := range f.tabs {
		if t.ID == id {
			return t, nil
		}
	}
	return domain.Tab{}, errx.New(errx.CodeTabNotFound, string(id))
}

func (f *fakeHost) ActiveTab(ctx context.Context) (domain.Tab, error) {
	if len(f.tabs) == 0 {
		return domain.Tab{}, errx.New(errx.CodeNoActiveTab, "no page target")
	}
	return f.tabs[0], nil
}

func (f *fakeHost) OpenTab(ctx context.Context, url string) error {
	f.opened = append(f.opened, url)
	return nil
}

type fakeInjector struct {
	injected  map[domain.TabID]bool
	probeErr  map[domain.TabID]error
	injectErr map[domain.TabID]error
	results   map[domain.TabID]domain.ActionResult
	injects   []domain.TabID
	invokes   []domain.TabID
	configs   []domain.ExecutionConfig
}

func newFakeInjector() *fakeInjector {
	return &fakeInjector{
		injected:  map[domain.TabID]bool{},
		probeErr:  map[domain.TabID]error{},
		injectErr: map[domain.TabID]error{},
		results:   map[domain.TabID]domain.ActionResult{},
	}
}

func (f *fakeInjector) Probe(ctx context.Context, id domain.TabID, name string) (bool, error) {
	if err := f.probeErr[id]; err != nil {
		return false, err
	}
	return f.injected[id], nil
}

func (f *fakeInjector) Inject(ctx context.Context, id domain.TabID) error {
	f.injects = append(f.injects, id)
	if err := f.injectErr[id]; err != nil {
		return err
	}
	f.injected[id] = true
	return nil
}

func (f *fakeInjector) Invoke(ctx context.Context, id domain.TabID, cfg domain.ExecutionConfig) (domain.ActionResult, error) {
	f.invokes = append(f.invokes, id)
	f.configs = append(f.configs, cfg)
	return f.results[id], nil
}

type fakeImages struct {
	mu    sync.Mutex
	calls []imageCall
}

type imageCall struct {
	urls   []string
	action domain.ImageAction
}

func (f *fakeImages) Handle(ctx context.Context, urls []string, action domain.ImageAction) images.Report {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, imageCall{urls: urls, action: action})
	return images.Report{Downloaded: len(urls)}
}

type fixture struct {
	store *fakeStore
	host  *fakeHost
	inj   *fakeInjector
	img   *fakeImages
	orc   *orchestrator.Orchestrator
}

func newFixture(t *testing.T, tabs ...domain.Tab) *fixture {
	t.Helper()
	f := &fixture{
		store: &fakeStore{s: domain.DefaultSettings()},
		host:  &fakeHost{tabs: tabs},
		inj:   newFakeInjector(),
		img:   &fakeImages{},
	}
	f.orc = orchestrator.New(f.store, f.host, f.inj, f.img, menu.NewRegistry(), orchestrator.Options{
		PostPatterns: []string{"*://*.bilibili.com/opus/*", "*://*.bilibili.com/read/*"},
		MenuPatterns: []string{"https://www.bilibili.com/opus/*", "https://www.bilibili.com/read/*"},
		BridgeName:   "__opusQuickActions",
	}, nil)
	require.NoError(t, f.orc.RegisterMenus())
	return f
}

func liked() domain.ActionResult {
	return domain.ActionResult{
		Like:     domain.Succeeded(domain.CapabilityLike),
		Favorite: domain.Failed(domain.CapabilityFavorite, domain.ReasonAlreadyFavorited),
	}
}

func TestRunOnAllTabs_NoMatchingPages(t *testing.T) {
	f := newFixture(t,
		domain.Tab{ID: "1", URL: "https://www.bilibili.com/video/BV1xx", Status: domain.TabStatusComplete},
		domain.Tab{ID: "2", URL: "https://example.com/opus/1", Status: domain.TabStatusComplete},
	)

	sum := f.orc.RunOnAllTabs(context.Background())

	assert.False(t, sum.OverallSuccess)
	assert.Equal(t, orchestrator.MessageNoMatchingPages, sum.Message)
	assert.Zero(t, sum.SuccessCount)
	assert.Zero(t, sum.ErrorCount)
	assert.Empty(t, f.inj.injects, "不应注入任何标签页")
	assert.Empty(t, f.inj.invokes)
}

func TestRunOnAllTabs_MixedResults(t *testing.T) {
	f := newFixture(t,
		domain.Tab{ID: "A", URL: "https://www.bilibili.com/opus/1", Status: domain.TabStatusComplete},
		domain.Tab{ID: "B", URL: "https://www.bilibili.com/opus/2", Status: domain.TabStatusLoading},
		domain.Tab{ID: "C", URL: "https://t.bilibili.com/read/cv3", Status: domain.TabStatusComplete},
		domain.Tab{ID: "D", URL: "https://www.bilibili.com/video/BV1", Status: domain.TabStatusComplete},
	)
	f.inj.results["A"] = liked()
	f.inj.injectErr["C"] = errors.New("cannot access page")

	sum := f.orc.RunOnAllTabs(context.Background())

	assert.True(t, sum.OverallSuccess)
	assert.Equal(t, "processed 3 pages: 1 succeeded, 2 failed", sum.Message)
	assert.Equal(t, 1, sum.SuccessCount)
	assert.Equal(t, 2, sum.ErrorCount)

	require.Len(t, sum.Reports, 3)
	assert.Equal(t, domain.TabID("A"), sum.Reports[0].TabID)
	assert.True(t, sum.Reports[0].Injected)
	assert.Equal(t, domain.TabID("B"), sum.Reports[1].TabID)
	assert.Equal(t, orchestrator.ReasonTabNotReady, sum.Reports[1].Reason)
	assert.Equal(t, domain.TabID("C"), sum.Reports[2].TabID)
	assert.Contains(t, sum.Reports[2].Reason, string(errx.CodeInjectionFailed))

	assert.Equal(t, []domain.TabID{"A", "C"}, f.inj.injects)
	assert.Equal(t, []domain.TabID{"A"}, f.inj.invokes, "未就绪与注入失败的标签页不应执行")
	assert.Equal(t, 2, f.store.loads, "每个就绪标签页都应重新读取偏好")
}

func TestRunOnAllTabs_ImageOnlyTabCountsAsSuccess(t *testing.T) {
	f := newFixture(t,
		domain.Tab{ID: "A", URL: "https://www.bilibili.com/opus/1", Status: domain.TabStatusComplete},
		domain.Tab{ID: "B", URL: "https://www.bilibili.com/opus/2", Status: domain.TabStatusComplete},
		domain.Tab{ID: "C", URL: "https://www.bilibili.com/opus/3", Status: domain.TabStatusComplete},
	)
	f.inj.results["A"] = domain.ActionResult{
		Like:      domain.Succeeded(domain.CapabilityLike),
		Favorite:  domain.Succeeded(domain.CapabilityFavorite),
		ImageURLs: []string{"https://i0.hdslb.com/bfs/new_dyn/a.jpg"},
	}
	f.inj.results["B"] = domain.ActionResult{
		Like:      domain.Failed(domain.CapabilityLike, domain.ReasonAlreadyLiked),
		Favorite:  domain.Failed(domain.CapabilityFavorite, domain.ReasonAlreadyFavorited),
		ImageURLs: []string{"https://i0.hdslb.com/bfs/new_dyn/b.jpg"},
	}
	f.inj.injectErr["C"] = errors.New("cannot access page")

	sum := f.orc.RunOnAllTabs(context.Background())

	assert.True(t, sum.OverallSuccess)
	assert.Equal(t, 2, sum.SuccessCount)
	assert.Equal(t, 1, sum.ErrorCount)
	assert.Equal(t, "processed 3 pages: 2 succeeded, 1 failed", sum.Message)

	require.Len(t, sum.Reports, 3)
	order := []domain.TabID{sum.Reports[0].TabID, sum.Reports[1].TabID, sum.Reports[2].TabID}
	assert.Equal(t, []domain.TabID{"A", "B", "C"}, order)
	assert.Empty(t, sum.Reports[1].Reason, "仅图片成功的标签页不应带失败原因")
	assert.Contains(t, sum.Reports[2].Reason, string(errx.CodeInjectionFailed))
	assert.Equal(t, []domain.TabID{"A", "B"}, f.inj.invokes)
}

func TestRunOnAllTabs_EmptyResultIsFailure(t *testing.T) {
	f := newFixture(t,
		domain.Tab{ID: "A", URL: "https://www.bilibili.com/opus/1", Status: domain.TabStatusComplete},
	)

	sum := f.orc.RunOnAllTabs(context.Background())

	assert.Equal(t, 0, sum.SuccessCount, "没有任何动作结果不应计为成功")
	assert.Equal(t, 1, sum.ErrorCount)
	require.Len(t, sum.Reports, 1)
	assert.Equal(t, "no successful action", sum.Reports[0].Reason)
}

func TestRunOnAllTabs_AllFailedStillReportsSuccess(t *testing.T) {
	f := newFixture(t,
		domain.Tab{ID: "A", URL: "https://www.bilibili.com/opus/1", Status: domain.TabStatusComplete},
	)
	f.inj.results["A"] = domain.ActionResult{
		Like:     domain.Failed(domain.CapabilityLike, domain.ReasonAlreadyLiked),
		Favorite: domain.Failed(domain.CapabilityFavorite, domain.ReasonAlreadyFavorited),
	}

	sum := f.orc.RunOnAllTabs(context.Background())

	assert.True(t, sum.OverallSuccess)
	assert.Equal(t, 0, sum.SuccessCount)
	assert.Equal(t, 1, sum.ErrorCount)
}

func TestRunOnAllTabs_Canceled(t *testing.T) {
	f := newFixture(t,
		domain.Tab{ID: "A", URL: "https://www.bilibili.com/opus/1", Status: domain.TabStatusComplete},
		domain.Tab{ID: "B", URL: "https://www.bilibili.com/opus/2", Status: domain.TabStatusComplete},
	)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sum := f.orc.RunOnAllTabs(ctx)

	assert.False(t, sum.OverallSuccess)
	assert.Len(t, sum.Reports, 1)
}

func TestRunOnTab_SkipsInjectionWhenPresent(t *testing.T) {
	f := newFixture(t, domain.Tab{ID: "A", URL: "https://www.bilibili.com/opus/1", Status: domain.TabStatusComplete})
	f.inj.injected["A"] = true
	f.inj.results["A"] = liked()

	res, err := f.orc.RunOnTab(context.Background(), "A")

	require.NoError(t, err)
	assert.True(t, res.Like.IsSuccess())
	assert.Empty(t, f.inj.injects)
}

func TestRunOnTab_ProbeErrorInjects(t *testing.T) {
	f := newFixture(t, domain.Tab{ID: "A", URL: "https://www.bilibili.com/opus/1", Status: domain.TabStatusComplete})
	f.inj.probeErr["A"] = errors.New("evaluate failed")

	_, err := f.orc.RunOnTab(context.Background(), "A")

	require.NoError(t, err)
	assert.Equal(t, []domain.TabID{"A"}, f.inj.injects)
}

func TestRunOnTab_ForwardsImages(t *testing.T) {
	f := newFixture(t, domain.Tab{ID: "A", URL: "https://www.bilibili.com/opus/1", Status: domain.TabStatusComplete})
	f.store.s = domain.Settings{ImageEnabled: true, ImageAction: domain.ImageActionOpenTab}
	urls := []string{"https://i0.hdslb.com/bfs/new_dyn/a.jpg", "https://i0.hdslb.com/bfs/new_dyn/b.jpg"}
	f.inj.results["A"] = domain.ActionResult{
		Like:      domain.Skipped(domain.CapabilityLike),
		Favorite:  domain.Skipped(domain.CapabilityFavorite),
		ImageURLs: urls,
	}

	res, err := f.orc.RunOnTab(context.Background(), "A")

	require.NoError(t, err)
	assert.Equal(t, urls, res.ImageURLs)
	require.Len(t, f.img.calls, 1)
	assert.Equal(t, domain.ImageActionOpen, f.img.calls[0].action)
	assert.Equal(t, urls, f.img.calls[0].urls)
	assert.Equal(t, domain.ImageActionOpen, f.inj.configs[0].ImageAction)
}

func TestRunOnTab_ImagesDisabled(t *testing.T) {
	f := newFixture(t, domain.Tab{ID: "A", URL: "https://www.bilibili.com/opus/1", Status: domain.TabStatusComplete})
	f.store.s = domain.Settings{LikeEnabled: true, ImageEnabled: false, ImageAction: domain.ImageActionDownload}
	f.inj.results["A"] = domain.ActionResult{ImageURLs: []string{"https://i0.hdslb.com/bfs/a.jpg"}}

	_, err := f.orc.RunOnTab(context.Background(), "A")

	require.NoError(t, err)
	assert.Empty(t, f.img.calls)
	assert.Equal(t, domain.ImageActionNone, f.inj.configs[0].ImageAction)
}

func TestRunOnActiveTab_NotPostPage(t *testing.T) {
	f := newFixture(t, domain.Tab{ID: "A", URL: "https://www.bilibili.com/video/BV1", Status: domain.TabStatusComplete})

	_, _, err := f.orc.RunOnActiveTab(context.Background())

	assert.True(t, errx.Is(err, errx.CodeNotPostPage))
	assert.Empty(t, f.inj.invokes)
}

func TestRunOnActiveTab_NotReady(t *testing.T) {
	f := newFixture(t, domain.Tab{ID: "A", URL: "https://www.bilibili.com/opus/1", Status: domain.TabStatusLoading})

	_, _, err := f.orc.RunOnActiveTab(context.Background())

	assert.True(t, errx.Is(err, errx.CodeTabNotReady))
	assert.Empty(t, f.inj.injects, "未加载完成的页面不应注入")
}

func TestRunMenuCommand(t *testing.T) {
	tests := []struct {
		name   string
		item   string
		want   domain.ExecutionConfig
		images bool
	}{
		{"点赞", menu.LikeID, domain.ExecutionConfig{LikeEnabled: true, ImageAction: domain.ImageActionNone}, false},
		{"收藏", menu.FavoriteID, domain.ExecutionConfig{FavoriteEnabled: true, ImageAction: domain.ImageActionNone}, false},
		{"下载图片", menu.DownloadImageID, domain.ExecutionConfig{ImageEnabled: true, ImageAction: domain.ImageActionDownload}, true},
		{"打开图片", menu.OpenImageID, domain.ExecutionConfig{ImageEnabled: true, ImageAction: domain.ImageActionOpen}, true},
		{"父菜单使用偏好", menu.ParentID, domain.NewExecutionConfig(domain.DefaultSettings()), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, domain.Tab{ID: "A", URL: "https://www.bilibili.com/opus/1", Status: domain.TabStatusComplete})
			f.inj.results["A"] = domain.ActionResult{ImageURLs: []string{"https://i0.hdslb.com/bfs/a.jpg"}}

			_, err := f.orc.RunMenuCommand(context.Background(), tt.item, "A")

			require.NoError(t, err)
			require.Len(t, f.inj.configs, 1)
			assert.Equal(t, tt.want, f.inj.configs[0])
			assert.Equal(t, tt.images, len(f.img.calls) == 1)
		})
	}
}

func TestRunMenuCommand_OutsideMenuScope(t *testing.T) {
	f := newFixture(t, domain.Tab{ID: "A", URL: "https://t.bilibili.com/opus/1", Status: domain.TabStatusComplete})

	_, err := f.orc.RunMenuCommand(context.Background(), menu.LikeID, "A")
	assert.True(t, errx.Is(err, errx.CodeNotPostPage))

	_, err = f.orc.RunMenuCommand(context.Background(), "no-such-item", "A")
	assert.True(t, errx.Is(err, errx.CodeUnknownCommand))
}

func TestHandleMessage_Settings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.orc.HandleMessage(ctx, protocol.Request{
		Action:   protocol.ActionSaveSettings,
		Settings: json.RawMessage(`{"likeEnabled":false,"imageAction":"open-tab","favoriteEnabled":"yes"}`),
	})
	require.NoError(t, err)

	out, err := f.orc.HandleMessage(ctx, protocol.Request{Action: protocol.ActionGetSettings})
	require.NoError(t, err)
	reply, ok := out.(protocol.SettingsReply)
	require.True(t, ok)
	assert.Equal(t, domain.Settings{
		LikeEnabled:     false,
		FavoriteEnabled: true,
		ImageEnabled:    true,
		ImageAction:     domain.ImageActionOpenTab,
	}, reply.Settings)

	_, err = f.orc.HandleMessage(ctx, protocol.Request{Action: protocol.ActionSaveSettings})
	assert.ErrorIs(t, err, protocol.ErrInvalidParams)
}

func TestHandleMessage_HandleImagesAsync(t *testing.T) {
	f := newFixture(t)
	urls := []string{"https://i0.hdslb.com/bfs/a.jpg"}

	out, err := f.orc.HandleMessage(context.Background(), protocol.Request{
		Action:      protocol.ActionHandleImages,
		ImageURLs:   urls,
		ImageAction: domain.ImageActionOpenTab,
	})
	require.NoError(t, err)
	assert.Equal(t, protocol.OK, out)

	f.orc.Wait()
	require.Len(t, f.img.calls, 1)
	assert.Equal(t, domain.ImageActionOpen, f.img.calls[0].action)
}

func TestHandleMessage_Scripts(t *testing.T) {
	f := newFixture(t, domain.Tab{ID: "A", URL: "https://www.bilibili.com/opus/1", Status: domain.TabStatusComplete})
	ctx := context.Background()

	out, err := f.orc.HandleMessage(ctx, protocol.Request{Action: protocol.ActionCheckScript, TabID: "A"})
	require.NoError(t, err)
	assert.Equal(t, protocol.ScriptReply{Exists: false}, out)

	_, err = f.orc.HandleMessage(ctx, protocol.Request{Action: protocol.ActionLoadScript, TabID: "A"})
	require.NoError(t, err)

	out, err = f.orc.HandleMessage(ctx, protocol.Request{Action: protocol.ActionCheckScript, TabID: "A"})
	require.NoError(t, err)
	assert.Equal(t, protocol.ScriptReply{Exists: true}, out)

	_, err = f.orc.HandleMessage(ctx, protocol.Request{Action: protocol.ActionCheckScript})
	assert.ErrorIs(t, err, protocol.ErrInvalidParams)
}

func TestHandleMessage_ExecuteQuickActions(t *testing.T) {
	f := newFixture(t, domain.Tab{ID: "A", URL: "https://www.bilibili.com/opus/1", Status: domain.TabStatusComplete})
	f.inj.results["A"] = liked()

	out, err := f.orc.HandleMessage(context.Background(), protocol.Request{
		Action:   protocol.ActionExecuteQuickActions,
		Settings: json.RawMessage(`{"likeEnabled":true,"imageEnabled":false,"imageAction":"download"}`),
	})

	require.NoError(t, err)
	res, ok := out.(domain.ActionResult)
	require.True(t, ok)
	assert.True(t, res.Like.IsSuccess())
	assert.Equal(t, domain.ExecutionConfig{LikeEnabled: true, ImageAction: domain.ImageActionNone}, f.inj.configs[0])
}

func TestHandleMessage_ListMenus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	out, err := f.orc.HandleMessage(ctx, protocol.Request{Action: protocol.ActionListMenus})
	require.NoError(t, err)
	assert.Len(t, out.(protocol.MenusReply).Menus, 5)

	out, err = f.orc.HandleMessage(ctx, protocol.Request{Action: protocol.ActionListMenus, URL: "https://www.bilibili.com/video/BV1"})
	require.NoError(t, err)
	assert.Empty(t, out.(protocol.MenusReply).Menus)
}

func TestHandleMessage_UnknownAction(t *testing.T) {
	f := newFixture(t)

	_, err := f.orc.HandleMessage(context.Background(), protocol.Request{Action: "bogus"})

	assert.True(t, errx.Is(err, errx.CodeUnknownCommand))
}

func TestHandleMessage_ResetSettings(t *testing.T) {
	f := newFixture(t)
	f.store.s = domain.Settings{ImageAction: domain.ImageActionNone}

	out, err := f.orc.HandleMessage(context.Background(), protocol.Request{Action: protocol.ActionResetSettings})

	require.NoError(t, err)
	assert.Equal(t, protocol.SettingsReply{Settings: domain.DefaultSettings()}, out)
	assert.Equal(t, 1, f.store.resets)
}

func TestQueueStats(t *testing.T) {
	f := newFixture(t)

	assert.True(t, f.orc.HandleImagesAsync(context.Background(), []string{"https://i0.hdslb.com/bfs/a.jpg"}, domain.ImageActionDownload))
	f.orc.Wait()

	st := f.orc.QueueStats()
	assert.Equal(t, int64(1), st.Submitted)
	assert.Zero(t, st.Dropped)
	assert.Zero(t, st.Queued)
	assert.Positive(t, st.Capacity)
}
