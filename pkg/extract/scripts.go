package extract

// Probe markers open every in-page script so a recorded or fake page can
// tell the probes apart.
const (
	ProbeMetrics    = "probe:metrics"
	ProbeStructure  = "probe:structure"
	ProbeColors     = "probe:colors"
	ProbeTypography = "probe:typography"
	ProbeLayout     = "probe:layout"
	ProbeSemantics  = "probe:semantics"
)

// The probes only observe; ranking, dedup and filtering happen in Go.
// Each returns a JSON string.

const metricsScript = `/* probe:metrics */ () => {
  const nav = performance.getEntriesByType('navigation')[0];
  const paint = performance.getEntriesByType('paint').find((e) => e.name === 'first-contentful-paint');
  const resources = performance.getEntriesByType('resource');
  return JSON.stringify({
    domElements: document.querySelectorAll('*').length,
    resourceSize: Math.round(resources.reduce((sum, e) => sum + (e.transferSize || 0), 0)),
    loadTime: nav ? Math.round(nav.loadEventEnd - nav.fetchStart) : 0,
    renderTime: Math.round(paint ? paint.startTime : 0),
    viewportWidth: window.innerWidth,
    viewportHeight: window.innerHeight,
  });
}`

const structureScript = `/* probe:structure */ () => {
  const walk = (el) => {
    const cs = window.getComputedStyle(el);
    const attributes = {};
    for (const a of Array.from(el.attributes)) attributes[a.name] = a.value;
    const text = Array.from(el.childNodes)
      .filter((n) => n.nodeType === Node.TEXT_NODE)
      .map((n) => (n.textContent || '').trim())
      .filter(Boolean)
      .join(' ');
    return {
      tagName: el.tagName.toLowerCase(),
      attributes,
      textContent: text,
      styles: {
        color: cs.color,
        backgroundColor: cs.backgroundColor,
        fontSize: cs.fontSize,
        fontFamily: cs.fontFamily,
        fontWeight: cs.fontWeight,
        lineHeight: cs.lineHeight,
        margin: cs.margin,
        padding: cs.padding,
        display: cs.display,
        position: cs.position,
        width: cs.width,
        height: cs.height,
      },
      children: Array.from(el.children).map(walk),
    };
  };
  return JSON.stringify(document.body ? walk(document.body) : null);
}`

const colorsScript = `/* probe:colors */ () => {
  const out = [];
  document.querySelectorAll('*').forEach((el) => {
    const cs = window.getComputedStyle(el);
    out.push(['color', cs.color]);
    out.push(['backgroundColor', cs.backgroundColor]);
    out.push(['borderColor', cs.borderColor]);
  });
  return JSON.stringify(out);
}`

const typographyScript = `/* probe:typography */ () => {
  const out = [];
  document.querySelectorAll('*').forEach((el) => {
    const cs = window.getComputedStyle(el);
    out.push({
      fontFamily: cs.fontFamily,
      fontSize: cs.fontSize,
      fontWeight: cs.fontWeight,
      lineHeight: cs.lineHeight,
      letterSpacing: cs.letterSpacing,
      tag: el.tagName.toLowerCase(),
    });
  });
  return JSON.stringify(out);
}`

const layoutScript = `/* probe:layout */ () => {
  const out = [];
  document.querySelectorAll('*').forEach((el) => {
    const cs = window.getComputedStyle(el);
    if (cs.display !== 'flex' && cs.display !== 'grid' && cs.display !== 'inline-flex' && cs.display !== 'inline-grid') return;
    out.push({
      tag: el.tagName.toLowerCase(),
      id: el.id || '',
      classes: Array.from(el.classList),
      display: cs.display,
      position: cs.position,
      margin: cs.margin,
      padding: cs.padding,
      width: cs.width,
      height: cs.height,
      flexDirection: cs.flexDirection,
      justifyContent: cs.justifyContent,
      alignItems: cs.alignItems,
      flexWrap: cs.flexWrap,
      gap: cs.gap,
      gridTemplateColumns: cs.gridTemplateColumns,
      gridTemplateRows: cs.gridTemplateRows,
      gridAutoFlow: cs.gridAutoFlow,
    });
  });
  return JSON.stringify(out);
}`

const semanticsScript = `/* probe:semantics */ (tags) => {
  const out = [];
  tags.forEach((tag) => {
    document.querySelectorAll(tag).forEach((el, index) => {
      out.push({
        type: tag,
        index,
        role: el.getAttribute('role') || '',
        ariaLabel: el.getAttribute('aria-label') || '',
        children: Array.from(el.children).map((c) => c.tagName.toLowerCase()),
      });
    });
  });
  return JSON.stringify(out);
}`
