package xasc

import (
	"context"
	"net/url"
	"time"
)

// maxPages 限制分页跟随的页数，防止服务端返回循环链接。
const maxPages = 100

// App 是 apps 资源的精简表示。
type App struct {
	ID       string
	BundleID string
	Name     string
	SKU      string
}

// Release 是 appStoreVersions 资源的精简表示。
type Release struct {
	ID            string
	Version       string
	AppStoreState string
	Platform      string
}

// Build 是 TestFlight builds 资源的精简表示。
type Build struct {
	ID           string
	Version      string
	UploadedDate time.Time
	MinOSVersion string
}

// PreRelease 是 build 关联的 preReleaseVersions 资源。
type PreRelease struct {
	ID       string
	Version  string
	Platform string
}

// ValidFor 报告预发布版本是否带有版本号且平台匹配。platform 为空时只要求平台非空。
func (p PreRelease) ValidFor(platform string) bool {
	if p.Version == "" || p.Platform == "" {
		return false
	}
	return platform == "" || p.Platform == platform
}

// resource 是 JSON:API 资源对象。
type resource[A any] struct {
	Type       string `json:"type"`
	ID         string `json:"id"`
	Attributes *A     `json:"attributes,omitempty"`
}

// document 是 JSON:API 集合响应。
type document[A any] struct {
	Data  []resource[A] `json:"data"`
	Links struct {
		Self string `json:"self"`
		Next string `json:"next,omitempty"`
	} `json:"links"`
}

// single 是 JSON:API 单资源响应。
type single[A any] struct {
	Data resource[A] `json:"data"`
}

type appAttributes struct {
	BundleID string `json:"bundleId"`
	Name     string `json:"name"`
	SKU      string `json:"sku"`
}

type versionAttributes struct {
	VersionString string `json:"versionString"`
	AppStoreState string `json:"appStoreState"`
	Platform      string `json:"platform"`
}

type buildAttributes struct {
	Version      string     `json:"version"`
	UploadedDate *time.Time `json:"uploadedDate"`
	MinOSVersion string     `json:"minOsVersion"`
}

type preReleaseAttributes struct {
	Version  string `json:"version"`
	Platform string `json:"platform"`
}

// Apps 返回账号下的全部 App，自动跟随分页。缺少 bundleId 的条目被跳过。
func (c *Client) Apps(ctx context.Context) ([]App, error) {
	items, err := list[appAttributes](ctx, c, "/v1/apps?limit=200")
	if err != nil {
		return nil, err
	}
	apps := make([]App, 0, len(items))
	for _, it := range items {
		if it.Attributes == nil || it.Attributes.BundleID == "" {
			continue
		}
		apps = append(apps, App{
			ID:       it.ID,
			BundleID: it.Attributes.BundleID,
			Name:     it.Attributes.Name,
			SKU:      it.Attributes.SKU,
		})
	}
	return apps, nil
}

// Versions 返回指定 App 的全部 App Store 版本。缺少版本号或状态的条目被跳过。
func (c *Client) Versions(ctx context.Context, appID string) ([]Release, error) {
	path := "/v1/apps/" + url.PathEscape(appID) + "/appStoreVersions?limit=200"
	items, err := list[versionAttributes](ctx, c, path)
	if err != nil {
		return nil, err
	}
	releases := make([]Release, 0, len(items))
	for _, it := range items {
		if it.Attributes == nil || it.Attributes.VersionString == "" || it.Attributes.AppStoreState == "" {
			continue
		}
		releases = append(releases, Release{
			ID:            it.ID,
			Version:       it.Attributes.VersionString,
			AppStoreState: it.Attributes.AppStoreState,
			Platform:      it.Attributes.Platform,
		})
	}
	return releases, nil
}

// Builds 返回 TestFlight builds，按上传时间倒序。appID 为空时返回账号下全部 build。
// 缺少版本号的条目被跳过。
func (c *Client) Builds(ctx context.Context, appID string) ([]Build, error) {
	q := url.Values{}
	if appID != "" {
		q.Set("filter[app]", appID)
	}
	q.Set("sort", "-uploadedDate")
	q.Set("fields[builds]", "version,uploadedDate,minOsVersion")
	q.Set("limit", "200")

	items, err := list[buildAttributes](ctx, c, "/v1/builds?"+q.Encode())
	if err != nil {
		return nil, err
	}
	builds := make([]Build, 0, len(items))
	for _, it := range items {
		if it.Attributes == nil || it.Attributes.Version == "" {
			continue
		}
		b := Build{ID: it.ID, Version: it.Attributes.Version, MinOSVersion: it.Attributes.MinOSVersion}
		if it.Attributes.UploadedDate != nil {
			b.UploadedDate = *it.Attributes.UploadedDate
		}
		builds = append(builds, b)
	}
	return builds, nil
}

// PreReleaseVersion 返回 build 关联的预发布版本。
func (c *Client) PreReleaseVersion(ctx context.Context, buildID string) (PreRelease, error) {
	var doc single[preReleaseAttributes]
	if err := c.Get(ctx, "/v1/builds/"+url.PathEscape(buildID)+"/preReleaseVersion", &doc); err != nil {
		return PreRelease{}, err
	}
	pr := PreRelease{ID: doc.Data.ID}
	if a := doc.Data.Attributes; a != nil {
		pr.Version, pr.Platform = a.Version, a.Platform
	}
	return pr, nil
}

// list 拉取集合的所有分页。
func list[A any](ctx context.Context, c *Client, path string) ([]resource[A], error) {
	var all []resource[A]
	for page := 0; path != "" && page < maxPages; page++ {
		var doc document[A]
		if err := c.Get(ctx, path, &doc); err != nil {
			return nil, err
		}
		all = append(all, doc.Data...)
		path = doc.Links.Next
	}
	return all, nil
}
