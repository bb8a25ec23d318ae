package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/RecoveryAshes/NewsFIndcrawl/internal/models"
	"github.com/RecoveryAshes/NewsFIndcrawl/internal/utils"
)

// RenderFetcher 浏览器渲染抓取器(使用go-rod)
// 部分站点的落地页内容由JS渲染,静态抓取拿不到文章链接,
// 此类分类在目录里标记render后走本抓取器
type RenderFetcher struct {
	browser *rod.Browser

	// waitAfterLoad 页面加载后的额外等待时间(等待动态内容)
	waitAfterLoad time.Duration

	// HTTP头部提供者
	headerProvider models.HeaderProvider
}

// NewRenderFetcher 启动浏览器并创建渲染抓取器
// 调用方负责在运行结束后调用Close
func NewRenderFetcher(headless bool, waitAfterLoad time.Duration, headerProvider models.HeaderProvider) (*RenderFetcher, error) {
	l := launcher.New().Headless(headless)

	// 忽略证书错误,与静态抓取器行为一致
	l = l.Set("ignore-certificate-errors")

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("启动浏览器失败: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("连接浏览器失败: %w", err)
	}

	utils.Debugf("浏览器已启动: %s", controlURL)

	return &RenderFetcher{
		browser:        browser,
		waitAfterLoad:  waitAfterLoad,
		headerProvider: headerProvider,
	}, nil
}

// Close 关闭浏览器
func (f *RenderFetcher) Close() {
	if f.browser != nil {
		if err := f.browser.Close(); err != nil {
			utils.Warnf("关闭浏览器失败: %v", err)
		} else {
			utils.Debugf("浏览器已关闭")
		}
	}
}

// Fetch 渲染目标页面并返回渲染后的HTML,实现PageFetchPort
func (f *RenderFetcher) Fetch(ctx context.Context, targetURL string) (content []byte, err error) {
	// rod内部大量使用panic传递错误,统一转换为FetchError
	defer func() {
		if r := recover(); r != nil {
			utils.Errorf("渲染页面panic [%s]: %v", targetURL, r)
			content = nil
			err = &models.FetchError{URL: targetURL, Kind: models.FetchFailureRender,
				Cause: fmt.Errorf("渲染panic: %v", r)}
		}
	}()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, &models.FetchError{URL: targetURL, Kind: models.FetchFailureNetwork, Cause: ctxErr}
	}

	page, err := f.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, &models.FetchError{URL: targetURL, Kind: models.FetchFailureRender, Cause: err}
	}
	defer func() {
		if closeErr := page.Close(); closeErr != nil {
			utils.Debugf("关闭标签页失败: %v", closeErr)
		}
	}()

	page = page.Context(ctx)

	// 应用自定义HTTP头部
	if f.headerProvider != nil {
		f.applyHeaders(page)
	}

	if navErr := page.Navigate(targetURL); navErr != nil {
		utils.Errorf("导航失败 [%s]: %v", targetURL, navErr)
		return nil, &models.FetchError{URL: targetURL, Kind: models.FetchFailureRender, Cause: navErr}
	}

	if loadErr := page.WaitLoad(); loadErr != nil {
		utils.Errorf("等待页面加载失败 [%s]: %v", targetURL, loadErr)
		return nil, &models.FetchError{URL: targetURL, Kind: models.FetchFailureRender, Cause: loadErr}
	}

	// 额外等待动态内容加载
	if f.waitAfterLoad > 0 {
		time.Sleep(f.waitAfterLoad)
	}

	html, err := page.HTML()
	if err != nil {
		return nil, &models.FetchError{URL: targetURL, Kind: models.FetchFailureRender, Cause: err}
	}

	utils.Debugf("页面渲染完成: %s (%d bytes)", targetURL, len(html))
	return []byte(html), nil
}

// applyHeaders 把头部提供者的头部注入到页面请求
func (f *RenderFetcher) applyHeaders(page *rod.Page) {
	headers, err := f.headerProvider.GetHeaders()
	if err != nil {
		utils.Warnf("获取HTTP头部失败: %v", err)
		return
	}

	pairs := make([]string, 0, len(headers)*2)
	for name, values := range headers {
		if len(values) > 0 {
			pairs = append(pairs, name, values[0])
		}
	}
	if len(pairs) == 0 {
		return
	}
	if _, err := page.SetExtraHeaders(pairs); err != nil {
		utils.Warnf("设置请求头部失败: %v", err)
	}
}
